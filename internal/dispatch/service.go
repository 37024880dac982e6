package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
	"github.com/ises-energia/scrc-backend/pkg/logger"
	"github.com/ises-energia/scrc-backend/pkg/metrics"
	"github.com/ises-energia/scrc-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rulesLoader interface {
	Load(ctx context.Context) (*rules.Snapshot, error)
}

// Service runs the capacity- and eligibility-constrained assignment engine.
type Service interface {
	AutoAssign(ctx context.Context, input AutoAssignInput) (*AutoAssignResult, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	rules   rulesLoader
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.DispatchMetrics
	cfg     config.DispatchConfig
	now     func() time.Time
}

// Params collects the service dependencies.
type Params struct {
	Repo     Repository
	Tx       txRunner
	Rules    rulesLoader
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Metrics  *metrics.DispatchMetrics
	Dispatch config.DispatchConfig
	Now      func() time.Time
}

// NewService builds the assignment engine with the required dependencies.
func NewService(params Params) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("dispatch repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Rules == nil {
		return nil, fmt.Errorf("rules loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		rules:   params.Rules,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		cfg:     params.Dispatch,
		now:     now,
	}, nil
}

var errSnapshotConflict = errors.New("capacity snapshot conflict")

// AutoAssign matches pending orders to brigades in priority/FIFO order under
// a per-invocation capacity snapshot. The engine is stateless between calls;
// all capacity accounting is recomputed from the order table.
func (s *service) AutoAssign(ctx context.Context, input AutoAssignInput) (*AutoAssignResult, error) {
	if input.MaxOrders <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "maxOrders must be positive")
	}
	if input.BoostCapacity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "boostCapacity cannot be negative")
	}
	if input.MaxOrders > s.cfg.MaxBatchSize {
		input.MaxOrders = s.cfg.MaxBatchSize
	}
	if input.Trigger == "" {
		input.Trigger = TriggerManual
	}

	snapshot, err := s.rules.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading dispatch rules")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"trigger":    input.Trigger,
		"max_orders": input.MaxOrders,
		"dry_run":    input.DryRun,
	})

	if input.DryRun {
		return s.planOnly(ctx, snapshot, input)
	}

	attempts := s.cfg.SnapshotRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := s.assignBatch(ctx, snapshot, input)
		if err == nil {
			s.logBatch(ctx, result)
			return result, nil
		}
		if errors.Is(err, errSnapshotConflict) {
			s.metrics.IncConflict()
			if attempt+1 < attempts {
				s.logg.Warn(ctx, "capacity snapshot conflict, retrying batch")
				continue
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "assignment lost a capacity race, retry")
		}
		return nil, err
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "assignment lost a capacity race, retry")
}

// planOnly computes an advisory result from plain reads. Nothing is locked,
// persisted or emitted.
func (s *service) planOnly(ctx context.Context, snapshot *rules.Snapshot, input AutoAssignInput) (*AutoAssignResult, error) {
	candidates, err := s.candidateBrigades(ctx, s.repo, input)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountAssignedOn(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting assigned orders")
	}
	orders, err := s.repo.ListPending(ctx, input.MaxOrders)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pending orders")
	}

	plan := buildPlan(snapshot, orders, candidates, counts, input.BoostCapacity)
	result := plan.result(true)
	s.logBatch(ctx, result)
	return result, nil
}

func (s *service) assignBatch(ctx context.Context, snapshot *rules.Snapshot, input AutoAssignInput) (*AutoAssignResult, error) {
	var result *AutoAssignResult

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		candidates, err := s.candidateBrigades(ctx, repo, input)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(candidates))
		for _, b := range candidates {
			ids = append(ids, b.ID)
		}
		// Row locks on the candidate brigades serialize competing batches.
		locked, err := repo.LockBrigades(ctx, ids)
		if err != nil {
			if db.IsSerializationFailure(err) {
				return errSnapshotConflict
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "locking brigades")
		}
		locked = orderLikeCandidates(candidates, locked)

		now := s.now()
		counts, err := repo.CountAssignedOn(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting assigned orders")
		}
		orders, err := repo.ListPending(ctx, input.MaxOrders)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing pending orders")
		}

		plan := buildPlan(snapshot, orders, locked, counts, input.BoostCapacity)

		for _, p := range plan.pairs {
			rows, err := repo.AssignPending(ctx, p.order.ID, p.brigade.ID, now)
			if err != nil {
				if db.IsSerializationFailure(err) {
					return errSnapshotConflict
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting assignment")
			}
			if rows == 0 {
				// Another invocation grabbed this order after our read.
				return errSnapshotConflict
			}
			event := OrderAssignedEvent{
				OrderID:        p.order.ID,
				OrderNumber:    p.order.OrderNumber,
				OrderType:      p.order.OrderType,
				Priority:       p.order.Priority,
				BrigadeID:      p.brigade.ID,
				BrigadeCode:    p.brigade.Code,
				BrigadeType:    p.brigade.BrigadeType,
				Trigger:        input.Trigger,
				AssignmentDate: now,
			}
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderAssigned,
				AggregateType: enums.AggregateOrder,
				AggregateID:   p.order.ID,
				Data:          event,
				Version:       1,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emitting assignment event")
			}
		}

		result = plan.result(false)
		s.recordSkips(plan)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range result.Assignments {
		s.metrics.IncAssigned(string(a.BrigadeType))
	}
	return result, nil
}

func (s *service) recordSkips(p *plan) {
	for i := 0; i < p.noEligible; i++ {
		s.metrics.IncSkipped("no_eligible_brigade")
	}
	for i := 0; i < p.noCapacity; i++ {
		s.metrics.IncSkipped("capacity_exhausted")
	}
}

// candidateBrigades resolves the brigades considered by this invocation.
func (s *service) candidateBrigades(ctx context.Context, repo Repository, input AutoAssignInput) ([]models.Brigade, error) {
	if input.SpecificBrigadeID != nil {
		brigade, err := repo.FindBrigade(ctx, *input.SpecificBrigadeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brigade not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading brigade")
		}
		if brigade.Status != enums.BrigadeStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "brigade is inactive")
		}
		return []models.Brigade{*brigade}, nil
	}

	brigades, err := repo.ListActiveBrigades(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing brigades")
	}
	return brigades, nil
}

func (s *service) logBatch(ctx context.Context, result *AutoAssignResult) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"assigned":     result.Assigned,
		"skipped":      result.Skipped,
		"total_orders": result.TotalOrders,
	})
	s.logg.Info(ctx, "assignment batch finished")
}

type pairing struct {
	order   models.Order
	brigade models.Brigade
}

type plan struct {
	pairs      []pairing
	total      int
	noEligible int
	noCapacity int
}

// buildPlan runs the greedy matching against an in-memory capacity snapshot.
// It never touches the store.
func buildPlan(snapshot *rules.Snapshot, orders []models.Order, brigades []models.Brigade, counts map[uuid.UUID]int, boost int) *plan {
	remaining := make(map[uuid.UUID]int, len(brigades))
	for _, b := range brigades {
		capacity := b.CapacityPerDay
		if capacity <= 0 {
			capacity = snapshot.CapacityFor(b.BrigadeType)
		}
		remaining[b.ID] = capacity + boost - counts[b.ID]
	}

	p := &plan{total: len(orders)}
	for _, order := range orders {
		brigade, reason := pickBrigade(snapshot, &order, brigades, remaining)
		if brigade == nil {
			if reason == skipNoCapacity {
				p.noCapacity++
			} else {
				p.noEligible++
			}
			continue
		}
		remaining[brigade.ID]--
		p.pairs = append(p.pairs, pairing{order: order, brigade: *brigade})
	}
	return p
}

type skipReason int

const (
	skipNoEligible skipReason = iota
	skipNoCapacity
)

// pickBrigade scans candidates in a stable order: brigades whose current
// zone matches the order's municipality first, then the rest in code order.
func pickBrigade(snapshot *rules.Snapshot, order *models.Order, brigades []models.Brigade, remaining map[uuid.UUID]int) (*models.Brigade, skipReason) {
	anyEligible := false
	for _, zoneFirst := range []bool{true, false} {
		for i := range brigades {
			b := &brigades[i]
			if zoneMatches(b, order) != zoneFirst {
				continue
			}
			if !snapshot.IsEligible(order, b.BrigadeType) {
				continue
			}
			anyEligible = true
			if remaining[b.ID] > 0 {
				return b, 0
			}
		}
	}
	if anyEligible {
		return nil, skipNoCapacity
	}
	return nil, skipNoEligible
}

func zoneMatches(b *models.Brigade, order *models.Order) bool {
	if b.CurrentZone == "" || order.Municipality == "" {
		return false
	}
	return strings.EqualFold(b.CurrentZone, order.Municipality)
}

func (p *plan) result(dryRun bool) *AutoAssignResult {
	assignments := make([]Assignment, 0, len(p.pairs))
	for _, pr := range p.pairs {
		assignments = append(assignments, Assignment{
			OrderID:     pr.order.ID,
			OrderNumber: pr.order.OrderNumber,
			BrigadeID:   pr.brigade.ID,
			BrigadeCode: pr.brigade.Code,
			BrigadeType: pr.brigade.BrigadeType,
		})
	}
	return &AutoAssignResult{
		Assigned:    len(p.pairs),
		Skipped:     p.noEligible + p.noCapacity,
		TotalOrders: p.total,
		DryRun:      dryRun,
		Assignments: assignments,
	}
}

// orderLikeCandidates keeps the candidate ordering (code ASC) after the
// locking query reloads rows sorted by id.
func orderLikeCandidates(candidates, locked []models.Brigade) []models.Brigade {
	byID := make(map[uuid.UUID]models.Brigade, len(locked))
	for _, b := range locked {
		byID[b.ID] = b
	}
	out := make([]models.Brigade, 0, len(locked))
	for _, c := range candidates {
		if b, ok := byID[c.ID]; ok {
			out = append(out, b)
		}
	}
	return out
}
