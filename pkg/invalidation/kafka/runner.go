package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
	"github.com/mohammed-shakir/climate-risk-cache/internal/invalidation"
)

// Runner consumes invalidation events from a Kafka consumer group and applies
// them to the in-memory cache.
type Runner struct {
	log      *slog.Logger
	cfg      InvalidationConfig
	cache    invalidation.Cache
	ms       *runnerMetrics
	ver      *versionDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger     *slog.Logger
	Register   prometheus.Registerer
	DedupeSize int
}

func New(cfg InvalidationConfig, c invalidation.Cache, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		log:    opts.Logger,
		cfg:    cfg,
		cache:  c,
		ms:     newRunnerMetrics(opts.Register),
		ver:    newVersionDedupe(opts.DedupeSize),
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if r.cfg.Driver != DriverKafka || !r.cfg.Enabled {
		r.log.Info("invalidation runner disabled", "driver", r.cfg.Driver, "enabled", r.cfg.Enabled)
		return nil
	}
	if r.cache == nil {
		return errors.New("kafka runner: cache dependency is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = r.cfg.ClientID
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		cancel()
		return fmt.Errorf("consumer group: %w", err)
	}

	h := &groupHandler{
		setup:   r.onAssign,
		cleanup: r.onRevoke,
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.Topic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka invalidation runner started",
		"topic", r.cfg.Topic, "group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka invalidation runner stopped")
}

func (r *Runner) onAssign(sess sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(true)
	r.assign = map[int32]struct{}{}
	for _, parts := range sess.Claims() {
		for _, p := range parts {
			r.assign[p] = struct{}{}
		}
	}
}

func (r *Runner) onRevoke(sarama.ConsumerGroupSession) {
	r.assignMu.Lock()
	defer r.assignMu.Unlock()
	r.assigned.Store(false)
	r.assign = map[int32]struct{}{}
}

// Readiness reports whether the group currently holds partitions.
func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage never fails on a bad payload: a poison message is counted,
// logged and committed so it cannot wedge the partition.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	r.ms.observeLag(msg.Partition, msg.Timestamp)

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		r.reject(ctx, msg, "unknown", fmt.Errorf("decode: %w", err))
		return nil
	}
	if ev.TS.IsZero() {
		ev.TS = msg.Timestamp
	}
	if err := ev.Validate(); err != nil {
		r.reject(ctx, msg, ev.Op, fmt.Errorf("validate: %w", err))
		return nil
	}

	if !r.ver.shouldApply(ev.DedupeKey(), ev.Version) {
		observability.IncInvalidation(ev.Op, "duplicate")
		return nil
	}

	n, err := invalidation.Apply(r.cache, ev)
	if err != nil {
		r.reject(ctx, msg, ev.Op, err)
		return nil
	}
	r.ms.applied(ev.Op, ev.Partition, n, start)
	observability.IncInvalidation(ev.Op, "applied")

	r.log.DebugContext(ctx, "invalidation applied",
		"op", ev.Op,
		"partition", ev.Partition,
		"removed", n,
		"version", ev.Version)
	return nil
}

func (r *Runner) reject(ctx context.Context, msg *sarama.ConsumerMessage, op string, err error) {
	if op == "" {
		op = "unknown"
	}
	observability.IncInvalidation(op, "rejected")
	r.log.WarnContext(ctx, "invalidation event rejected",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"err", err)
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

// ConsumeClaim marks a message only after it was processed.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.process(ctx, msg); err != nil {
				return fmt.Errorf("process failed (topic=%s, part=%d, off=%d): %w",
					msg.Topic, msg.Partition, msg.Offset, err)
			}
			sess.MarkMessage(msg, "")
		}
	}
}
