package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ises-energia/scrc-backend/pkg/config"
	"github.com/ises-energia/scrc-backend/pkg/db/models"
	"github.com/ises-energia/scrc-backend/pkg/enums"
	"github.com/ises-energia/scrc-backend/pkg/logger"
)

const (
	settingCapacities  = "brigade_capacities"
	settingMatrix      = "eligibility_matrix"
	settingZonePattern = "zone_patterns"
)

// Loader materializes rule snapshots from the dispatch_settings table with a
// short in-process cache so settings edits take effect without a deploy.
type Loader struct {
	db   *gorm.DB
	cfg  config.DispatchConfig
	logg *logger.Logger

	mu       sync.Mutex
	cached   *Snapshot
	loadedAt time.Time
}

type LoaderParams struct {
	DB       *gorm.DB
	Dispatch config.DispatchConfig
	Logger   *logger.Logger
}

func NewLoader(params LoaderParams) (*Loader, error) {
	if params.DB == nil {
		return nil, errors.New("rules loader requires a db handle")
	}
	if params.Logger == nil {
		return nil, errors.New("rules loader requires a logger")
	}
	return &Loader{
		db:   params.DB,
		cfg:  params.Dispatch,
		logg: params.Logger,
	}, nil
}

// Load returns the current rules snapshot, reusing the cached copy while it
// is fresh.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && time.Since(l.loadedAt) < l.cfg.RulesCacheTTL {
		return l.cached, nil
	}

	snapshot, err := l.fetch(ctx)
	if err != nil {
		// A stale snapshot beats refusing to dispatch.
		if l.cached != nil {
			l.logg.Warn(ctx, "rules refresh failed, serving cached snapshot")
			return l.cached, nil
		}
		return nil, err
	}

	l.cached = snapshot
	l.loadedAt = time.Now()
	return snapshot, nil
}

// Invalidate drops the cache so the next Load hits the database.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

func (l *Loader) fetch(ctx context.Context) (*Snapshot, error) {
	var rows []models.DispatchSetting
	err := l.db.WithContext(ctx).
		Where("key IN ?", []string{settingCapacities, settingMatrix, settingZonePattern}).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading dispatch settings: %w", err)
	}

	snapshot := &Snapshot{
		DefaultCapacity: l.cfg.DefaultCapacity,
		Capacities:      map[enums.BrigadeType]int{},
		Matrix:          map[string]MatrixRow{},
		HighDebtFloor:   decimal.NewFromInt(l.cfg.HighDebtFloor),
	}

	for _, row := range rows {
		switch row.Key {
		case settingCapacities:
			if err := json.Unmarshal(row.Value, &snapshot.Capacities); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", row.Key, err)
			}
		case settingMatrix:
			if err := json.Unmarshal(row.Value, &snapshot.Matrix); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", row.Key, err)
			}
		case settingZonePattern:
			var patterns struct {
				Rural []string `json:"rural"`
				Urban []string `json:"urban"`
			}
			if err := json.Unmarshal(row.Value, &patterns); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", row.Key, err)
			}
			snapshot.RuralPatterns = patterns.Rural
			snapshot.UrbanPatterns = patterns.Urban
		}
	}

	return snapshot, nil
}
