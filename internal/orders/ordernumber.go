package orders

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/smartzfindery/storefront-backend/pkg/errors"
)

const orderSequenceCounter = "orders"

type sequenceSource interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// nextOrderNumber allocates a unique order number of the form
// ORD-<millis>-<zero-padded sequence>. The sequence comes from an atomic
// counter so concurrent checkouts never collide; the unique index on
// order_number is the backstop.
func nextOrderNumber(ctx context.Context, seq sequenceSource, now time.Time) (string, error) {
	n, err := seq.Incr(ctx, seq.CounterKey(orderSequenceCounter))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating order sequence")
	}
	return fmt.Sprintf("ORD-%d-%04d", now.UnixMilli(), n), nil
}
