package ordering

import (
	"context"

	"github.com/google/uuid"
)

// SiblingStore reports the highest order key among the children of a parent
// collection. The boolean is false when the parent has no children.
type SiblingStore interface {
	MaxOrder(ctx context.Context, parentID uuid.UUID) (int, bool, error)
}

// Policy computes append positions for siblings sharing a parent. Explicit
// order values supplied by clients bypass the policy entirely: sparse and
// duplicate keys are tolerated, ties break on creation time at read.
type Policy struct {
	store SiblingStore
}

func NewPolicy(store SiblingStore) *Policy {
	return &Policy{store: store}
}

// NextOrder returns max sibling order + 1, or 0 for an empty parent.
func (p *Policy) NextOrder(ctx context.Context, parentID uuid.UUID) (int, error) {
	max, ok, err := p.store.MaxOrder(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return max + 1, nil
}
