package brigades

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/internal/rules"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	pkgerrors "github.com/ises-energia/scrc-backend/pkg/errors"
)

type rulesLoader interface {
	Load(ctx context.Context) (*rules.Snapshot, error)
}

// View is one brigade with its derived daily workload. AssignedToday is
// always computed from the order table at read time.
type View struct {
	ID            uuid.UUID           `json:"id"`
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	BrigadeType   enums.BrigadeType   `json:"brigadeType"`
	Status        enums.BrigadeStatus `json:"status"`
	CurrentZone   string              `json:"currentZone"`
	Members       []string            `json:"members"`
	Capacity      int                 `json:"capacity"`
	AssignedToday int                 `json:"assignedToday"`
	OpenBacklog   int                 `json:"openBacklog"`
	Remaining     int                 `json:"remaining"`
}

// Service serves brigade reads with workload derived from orders.
type Service struct {
	repo  Repository
	rules rulesLoader
	now   func() time.Time
}

func NewService(repo Repository, loader rulesLoader, now func() time.Time) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if loader == nil {
		return nil, fmt.Errorf("rules loader required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, rules: loader, now: now}, nil
}

func (s *Service) List(ctx context.Context) ([]View, error) {
	snapshot, err := s.rules.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading dispatch rules")
	}
	brigades, err := s.repo.ListBrigades(ctx)
	if err != nil {
		return nil, err
	}
	day := s.now()
	assigned, err := s.repo.CountAssignedOn(ctx, day)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.CountOpenOn(ctx, day)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(brigades))
	for _, brigade := range brigades {
		views = append(views, buildView(brigade, snapshot, assigned, open))
	}
	return views, nil
}

func (s *Service) Find(ctx context.Context, id uuid.UUID) (*View, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "brigade id is required")
	}
	snapshot, err := s.rules.Load(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading dispatch rules")
	}
	brigade, err := s.repo.FindBrigade(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "brigade not found")
		}
		return nil, err
	}
	day := s.now()
	assigned, err := s.repo.CountAssignedOn(ctx, day)
	if err != nil {
		return nil, err
	}
	open, err := s.repo.CountOpenOn(ctx, day)
	if err != nil {
		return nil, err
	}
	view := buildView(*brigade, snapshot, assigned, open)
	return &view, nil
}

func buildView(brigade models.Brigade, snapshot *rules.Snapshot, assigned, open map[uuid.UUID]int) View {
	capacity := brigade.CapacityPerDay
	if capacity <= 0 {
		capacity = snapshot.CapacityFor(brigade.BrigadeType)
	}
	remaining := capacity - assigned[brigade.ID]
	if remaining < 0 {
		remaining = 0
	}
	return View{
		ID:            brigade.ID,
		Code:          brigade.Code,
		Name:          brigade.Name,
		BrigadeType:   brigade.BrigadeType,
		Status:        brigade.Status,
		CurrentZone:   brigade.CurrentZone,
		Members:       []string(brigade.Members),
		Capacity:      capacity,
		AssignedToday: assigned[brigade.ID],
		OpenBacklog:   open[brigade.ID],
		Remaining:     remaining,
	}
}
