package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *capturePublisher) Publish(_ context.Context, subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

func completedOrder(t *testing.T) *order.Order {
	t.Helper()
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	o, err := order.NewOrder("org-1", order.Draft{
		Items: []order.LineItem{{MenuItemID: "m1", Name: "Vada", Price: valueobject.MustMoney("45.50"), Quantity: 2}},
	}, now)
	require.NoError(t, err)
	full := valueobject.MustMoney("91")
	require.NoError(t, o.Complete(order.CompleteRequest{PaymentReceived: &full, PaymentMethod: order.PaymentUPI}, now))
	require.NoError(t, o.AssignInvoice(12, now))
	return o
}

func TestOrderNotifier_PublishesCompletedEvent(t *testing.T) {
	pub := &capturePublisher{}
	n := NewOrderNotifier(pub, "pos.")
	o := completedOrder(t)

	err := n.Handle(context.Background(), order.NewOrderCompletedEvent(o, time.Now()))
	require.NoError(t, err)

	assert.Equal(t, "pos.order.completed", pub.subject)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(pub.data, &payload))
	assert.Equal(t, float64(12), payload["invoice_number"])
	assert.Equal(t, 91.0, payload["total"])
	assert.Equal(t, "org-1", payload["organization_id"])
	assert.Equal(t, "upi", payload["payment_method"])
}

func TestOrderNotifier_PropagatesPublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("no responders")}
	n := NewOrderNotifier(pub, "pos")

	err := n.Handle(context.Background(), order.NewOrderCancelledEvent(completedOrder(t), time.Now()))
	assert.Error(t, err)
	assert.Equal(t, "pos.order.cancelled", pub.subject)
}

func TestOrderNotifier_EventTypes(t *testing.T) {
	n := NewOrderNotifier(NewLogPublisher(nil), "")
	assert.ElementsMatch(t, []string{"order.completed", "order.cancelled", "order.credit_settled"}, n.EventTypes())
	assert.Equal(t, "order.completed", n.Subject("order.completed"))
}
