package reporting

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ises-energia/scrc-backend/pkg/enums"
	"github.com/ises-energia/scrc-backend/pkg/types"
)

// ZoneCluster is one group of pending orders for the planning map.
type ZoneCluster struct {
	ZoneCode       string                `json:"zoneCode"`
	Municipality   string                `json:"municipality"`
	Count          int                   `json:"count"`
	SampleLocation *types.GeographyPoint `json:"sampleLocation,omitempty"`
}

// RoutingStats is the dashboard aggregate.
type RoutingStats struct {
	ByStatus        map[enums.OrderStatus]int `json:"byStatus"`
	ByType          map[enums.OrderType]int   `json:"byType"`
	ByBrigade       []BrigadeOrderCount       `json:"byBrigade"`
	OutstandingDebt decimal.Decimal           `json:"outstandingDebt"`
}

// Service serves read-only views for dispatchers. It never writes and takes
// no part in assignment correctness.
type Service struct {
	repo Repository
}

func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	return &Service{repo: repo}, nil
}

// ClusterOrdersByZone groups the pending backlog by zone and municipality.
// The sample location is whichever located order the group sees first; it
// only anchors the cluster on a map.
func (s *Service) ClusterOrdersByZone(ctx context.Context) ([]ZoneCluster, error) {
	views, err := s.repo.ListPendingForClustering(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing pending orders: %w", err)
	}

	type key struct {
		zone         string
		municipality string
	}
	groups := make(map[key]*ZoneCluster)
	for _, view := range views {
		k := key{zone: view.ZoneCode, municipality: view.Municipality}
		cluster, ok := groups[k]
		if !ok {
			cluster = &ZoneCluster{ZoneCode: view.ZoneCode, Municipality: view.Municipality}
			groups[k] = cluster
		}
		cluster.Count++
		if cluster.SampleLocation == nil && view.ReferenceLocation != nil {
			cluster.SampleLocation = view.ReferenceLocation
		}
	}

	clusters := make([]ZoneCluster, 0, len(groups))
	for _, cluster := range groups {
		clusters = append(clusters, *cluster)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].ZoneCode != clusters[j].ZoneCode {
			return clusters[i].ZoneCode < clusters[j].ZoneCode
		}
		return clusters[i].Municipality < clusters[j].Municipality
	})
	return clusters, nil
}

// RoutingStats aggregates order counts and open debt for the dashboard.
func (s *Service) RoutingStats(ctx context.Context) (*RoutingStats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting by status: %w", err)
	}
	byType, err := s.repo.CountByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting by type: %w", err)
	}
	byBrigade, err := s.repo.CountByBrigade(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting by brigade: %w", err)
	}
	debt, err := s.repo.OutstandingDebt(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing outstanding debt: %w", err)
	}
	return &RoutingStats{
		ByStatus:        byStatus,
		ByType:          byType,
		ByBrigade:       byBrigade,
		OutstandingDebt: debt,
	}, nil
}
