package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/keys"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

// AssessmentTTL is how long a computed assessment stays cached.
const AssessmentTTL = 30 * time.Minute

// Publisher receives every freshly computed assessment. Implementations must
// not block.
type Publisher interface {
	Publish(model.RiskAssessment)
}

// Service puts the cache manager in front of the engine. Concurrent misses
// for the same key may both compute; the last write wins.
type Service struct {
	engine *Engine
	cache  *manager.Manager
	pub    Publisher
	log    *slog.Logger
}

func NewService(engine *Engine, cache *manager.Manager, pub Publisher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{engine: engine, cache: cache, pub: pub, log: log}
}

// Assess returns the assessment and whether it was served from cache.
func (s *Service) Assess(ctx context.Context, loc model.Location, params Params) (model.RiskAssessment, bool, error) {
	if err := loc.Validate(); err != nil {
		return model.RiskAssessment{}, false, err
	}
	key := keys.Risk(loc.Latitude, loc.Longitude, params.CacheParams())

	if a, ok := manager.GetAs[model.RiskAssessment](s.cache, manager.Risk, key); ok {
		return a, true, nil
	}

	a, err := s.engine.Assess(loc, params)
	if err != nil {
		return model.RiskAssessment{}, false, err
	}
	s.cache.Set(manager.Risk, key, a, AssessmentTTL)
	if len(params.CacheParams()) == 0 {
		// keep /risk/indices in step with the assessment it summarises
		s.cache.Set(manager.Analysis, keys.Indices(loc.Latitude, loc.Longitude), a.Indices, 0)
	}
	observability.IncAssessment(string(a.OverallRisk))

	s.log.DebugContext(ctx, "risk assessment computed",
		"key", key,
		"overall", a.OverallRisk,
		"urban", a.Metadata.IsUrban,
	)
	if s.pub != nil {
		s.pub.Publish(a)
	}
	return a, false, nil
}

// Indices serves composite indices from the analysis partition. A miss is
// answered from the default-params assessment so both endpoints agree.
func (s *Service) Indices(ctx context.Context, loc model.Location) (model.CompositeIndices, bool, error) {
	if err := loc.Validate(); err != nil {
		return model.CompositeIndices{}, false, err
	}
	key := keys.Indices(loc.Latitude, loc.Longitude)
	if idx, ok := manager.GetAs[model.CompositeIndices](s.cache, manager.Analysis, key); ok {
		return idx, true, nil
	}
	a, cached, err := s.Assess(ctx, loc, Params{})
	if err != nil {
		return model.CompositeIndices{}, false, err
	}
	if cached {
		s.cache.Set(manager.Analysis, key, a.Indices, 0)
	}
	return a.Indices, false, nil
}
