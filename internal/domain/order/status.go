package order

// Status represents the lifecycle status of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a known Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the order is still on the floor
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusPreparing || s == StatusReady
}

// IsBilled reports whether the order has been billed (completed or paid)
func (s Status) IsBilled() bool {
	return s == StatusCompleted || s == StatusPaid
}

// IsTerminal reports whether no further lifecycle transition is possible.
// A completed order may still receive credit settlements.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPreparing || target == StatusReady || target.IsBilled() || target == StatusCancelled
	case StatusPreparing:
		return target == StatusReady || target.IsBilled() || target == StatusCancelled
	case StatusReady:
		return target.IsBilled() || target == StatusCancelled
	case StatusCompleted:
		return target == StatusPaid
	case StatusPaid, StatusCancelled:
		return false
	}
	return false
}

// ActiveStatuses lists the statuses of an active order
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusPreparing, StatusReady}
}

// BilledStatuses lists the statuses of a billed order
func BilledStatuses() []Status {
	return []Status{StatusCompleted, StatusPaid}
}

// PaymentMethod identifies how an order was paid
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentUPI    PaymentMethod = "upi"
	PaymentSplit  PaymentMethod = "split"
	PaymentCredit PaymentMethod = "credit"
)

// IsValid checks if the payment method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentSplit, PaymentCredit:
		return true
	}
	return false
}

// PaymentKind tags an entry of the payment history
type PaymentKind string

const (
	PaymentKindPayment    PaymentKind = "payment"
	PaymentKindCompletion PaymentKind = "completion"
	PaymentKindSettlement PaymentKind = "settlement"
)
