// Package envdata serves raw environmental datasets, preferring NASA POWER and
// degrading to synthetic series whenever the upstream cannot be used.
package envdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/keys"
	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/httpclient"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
	"github.com/mohammed-shakir/climate-risk-cache/internal/estimate"
	"github.com/mohammed-shakir/climate-risk-cache/internal/logger"
	"github.com/mohammed-shakir/climate-risk-cache/internal/nasa"
)

const (
	// RecentWindow is how far back from now POWER coverage is not guaranteed.
	RecentWindow = 7 * 24 * time.Hour
	// DefaultLookback is used when the caller gives no date range.
	DefaultLookback = 30
)

// Fallback reasons, also used as the metric label.
const (
	ReasonRecentWindow     = "recent_window"
	ReasonUpstreamDisabled = "upstream_disabled"
	ReasonTransport        = "transport_error"
	ReasonStatus           = "upstream_status"
	ReasonShape            = "shape_error"
)

var ErrUnknownCategory = errors.New("unknown data category")

// Fetcher is the upstream seam; *nasa.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, cat model.DataCategory, loc model.Location, dr model.DateRange) (nasa.RawRecord, error)
}

// TTL is how long a dataset of the given category stays cached.
func TTL(cat model.DataCategory) time.Duration {
	switch cat {
	case model.DataTemperature, model.DataPrecipitation:
		return time.Hour
	case model.DataVegetation:
		return 2 * time.Hour
	case model.DataElevation:
		return 24 * time.Hour
	case model.DataAirQuality:
		return 30 * time.Minute
	default:
		return 0
	}
}

type Service struct {
	upstream Fetcher
	cache    *manager.Manager
	gen      *generator
	clock    clockwork.Clock
	timeout  time.Duration
	log      *slog.Logger
}

type Option func(*Service)

func WithClock(c clockwork.Clock) Option { return func(s *Service) { s.clock = c } }
func WithRand(r estimate.Rand) Option    { return func(s *Service) { s.gen = newGenerator(r) } }
func WithLogger(l *slog.Logger) Option   { return func(s *Service) { s.log = l } }

// WithTimeout bounds the single upstream call.
func WithTimeout(d time.Duration) Option { return func(s *Service) { s.timeout = d } }

// New builds the service. A nil upstream disables POWER entirely and every
// request is served synthetically.
func New(upstream Fetcher, cache *manager.Manager, opts ...Option) *Service {
	s := &Service{
		upstream: upstream,
		cache:    cache,
		clock:    clockwork.NewRealClock(),
		timeout:  httpclient.DefaultTimeout,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.gen == nil {
		s.gen = newGenerator(estimate.NewRand(uint64(s.clock.Now().UnixNano())))
	}
	return s
}

// Get returns the dataset and whether it came from cache. Only invalid input
// produces an error; upstream failures degrade to synthetic data.
func (s *Service) Get(ctx context.Context, cat model.DataCategory, loc model.Location, dr model.DateRange) (model.Dataset, bool, error) {
	if _, ok := schemas[cat]; !ok {
		return model.Dataset{}, false, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	if err := loc.Validate(); err != nil {
		return model.Dataset{}, false, err
	}
	start, end, err := s.resolve(dr)
	if err != nil {
		return model.Dataset{}, false, err
	}

	key := keys.NASAData(string(cat), loc.Latitude, loc.Longitude, dr.StartDate, dr.EndDate)
	if ds, ok := manager.GetAs[model.Dataset](s.cache, manager.NASA, key); ok {
		return ds, true, nil
	}

	ctx = logger.WithCategory(ctx, string(cat))
	resolved := model.DateRange{StartDate: start.Format(model.DateLayout), EndDate: end.Format(model.DateLayout)}
	ds := s.load(ctx, cat, loc, resolved, start, end)
	ds.Metadata.GeneratedAt = s.clock.Now().UTC()

	s.cache.Set(manager.NASA, key, ds, TTL(cat))
	return ds, false, nil
}

// resolve parses the range, defaulting to the DefaultLookback days ending today.
func (s *Service) resolve(dr model.DateRange) (time.Time, time.Time, error) {
	if dr.IsZero() {
		y, m, d := s.clock.Now().UTC().Date()
		end := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, 0, -(DefaultLookback - 1)), end, nil
	}
	return dr.Bounds()
}

func (s *Service) load(ctx context.Context, cat model.DataCategory, loc model.Location, dr model.DateRange, start, end time.Time) model.Dataset {
	if s.upstream == nil {
		return s.fallback(ctx, cat, loc, start, end, ReasonUpstreamDisabled, nil)
	}
	if !end.Before(s.clock.Now().Add(-RecentWindow)) {
		return s.fallback(ctx, cat, loc, start, end, ReasonRecentWindow, nil)
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	rec, err := s.upstream.Fetch(cctx, cat, loc, dr)
	if err != nil {
		return s.fallback(ctx, cat, loc, start, end, reason(err), err)
	}
	ds, err := mapRecord(cat, loc, dr, rec)
	if err != nil {
		return s.fallback(ctx, cat, loc, start, end, ReasonShape, err)
	}
	ds.Metadata = model.DatasetMetadata{
		Source:      model.SourceNASAPower,
		Parameters:  nasa.Parameters(cat),
		ClimateZone: string(estimate.ClimateZoneFor(loc.Latitude)),
	}
	if cat == model.DataElevation {
		ds.Metadata.Parameters = fieldNames(cat)
	}
	return ds
}

func (s *Service) fallback(ctx context.Context, cat model.DataCategory, loc model.Location, start, end time.Time, why string, cause error) model.Dataset {
	observability.IncFallback(string(cat), why)
	ctx = logger.WithSource(ctx, model.SourceSynthetic)
	if cause != nil {
		s.log.WarnContext(ctx, "nasa power unavailable, serving synthetic data",
			"reason", why,
			"lat", loc.Latitude,
			"lon", loc.Longitude,
			"err", cause)
	} else {
		s.log.DebugContext(ctx, "serving synthetic data", "reason", why)
	}
	ds := s.gen.Generate(cat, loc, start, end)
	ds.Metadata.FallbackReason = why
	return ds
}

func reason(err error) string {
	var (
		te *nasa.TransportError
		ue *nasa.UpstreamError
	)
	switch {
	case errors.As(err, &te), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ReasonTransport
	case errors.As(err, &ue):
		return ReasonStatus
	default:
		return ReasonShape
	}
}
