// Package peer builds peer groups, averages and population rankings for
// ingested statements.
package peer

import (
	"context"

	"github.com/sells-group/callreport-cli/internal/model"
	"github.com/sells-group/callreport-cli/internal/store"
)

// Selector picks comparison groups by asset-size proximity.
type Selector struct {
	store store.Store
	count int
}

// NewSelector creates a Selector that picks up to count peers on each
// side of the subject.
func NewSelector(st store.Store, count int) *Selector {
	if count <= 0 {
		count = 10
	}
	return &Selector{store: st, count: count}
}

// SelectPeers returns the subject's nearest peers by total assets for the
// period: up to count strictly larger and count strictly smaller entities,
// closest first on both sides. Entities at the extremes of the size
// distribution simply get a one-sided group.
func (s *Selector) SelectPeers(ctx context.Context, period model.Period, entityID int64, totalAssets float64) (model.PeerSet, error) {
	larger, smaller, err := s.store.AssetNeighbors(ctx, period, entityID, totalAssets, s.count)
	if err != nil {
		return model.PeerSet{}, err
	}
	return model.PeerSet{Larger: larger, Smaller: smaller}, nil
}
