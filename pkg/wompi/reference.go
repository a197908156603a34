package wompi

import (
	"strings"

	"github.com/google/uuid"
)

const referenceSuffixLen = 8

// NewReference builds the merchant reference {orderID}-{8 hex}. References
// are unique per payment attempt, not per order.
func NewReference(orderID uuid.UUID) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:referenceSuffixLen]
	return orderID.String() + "-" + suffix
}

// OrderIDFromReference recovers the order id prefix of a reference.
func OrderIDFromReference(reference string) (uuid.UUID, bool) {
	idx := strings.LastIndex(reference, "-")
	if idx <= 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(reference[:idx])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
