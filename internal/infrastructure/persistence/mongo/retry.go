package mongo

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// newBackOff yields 100ms then 400ms between attempts
func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 4
	b.RandomizationFactor = 0
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// run executes fn with a per-attempt timeout, retrying transient failures.
// fn receives the 1-based attempt number so writes can recognise their own earlier landing.
// Exhausted transient failures surface as STORE_UNAVAILABLE.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context, attempt int) error) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(s.maxRetries)), ctx)

	err := backoff.Retry(func() error {
		attempt++
		opCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		err := fn(opCtx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() == nil && isTransient(err) {
			s.logger.Warn("Transient store error",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isTransient(err) {
		return shared.WrapDomainError(shared.CodeStoreUnavailable, "Store is temporarily unavailable", err)
	}
	return err
}

// isTransient reports whether err is a connection-level failure worth retrying
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && (labeled.HasErrorLabel("RetryableWriteError") || labeled.HasErrorLabel("TransientTransactionError")) {
		return true
	}
	return strings.Contains(err.Error(), "server selection error")
}

// duplicateIndex returns the name of the unique index a write collided with, or ""
func duplicateIndex(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	msg := err.Error()
	for _, idx := range []string{idxOrdersInvoice, idxTablesNumber, idxMenuName} {
		if strings.Contains(msg, idx) {
			return idx
		}
	}
	if strings.Contains(msg, "_id_") {
		return "_id_"
	}
	return "unknown"
}
