package app

import (
	"fmt"
	"sort"

	"github.com/dkeye/askroom/internal/domain"
)

// OrderPolicy decides the order questions appear in a snapshot.
// Input is in store order; implementations reorder in place.
type OrderPolicy interface {
	Order(questions []domain.Question)
	Name() string
}

// InsertionOrder keeps the order the store returned.
type InsertionOrder struct{}

func (InsertionOrder) Order([]domain.Question) {}
func (InsertionOrder) Name() string            { return "insertion" }

// LikesOrder puts the most liked questions first; ties keep store order.
type LikesOrder struct{}

func (LikesOrder) Order(qs []domain.Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		return qs[i].LikeCount > qs[j].LikeCount
	})
}

func (LikesOrder) Name() string { return "likes" }

func PolicyByName(name string) (OrderPolicy, error) {
	switch name {
	case "", "insertion":
		return InsertionOrder{}, nil
	case "likes":
		return LikesOrder{}, nil
	}
	return nil, fmt.Errorf("unknown ordering %q", name)
}
