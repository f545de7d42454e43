// Package riskevents publishes one Kafka event per freshly computed risk assessment.
package riskevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/model"
	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

type Event struct {
	Latitude     float64                        `json:"latitude"`
	Longitude    float64                        `json:"longitude"`
	H3Cell       string                         `json:"h3Cell,omitempty"`
	OverallRisk  model.Level                    `json:"overallRisk"`
	OverallScore float64                        `json:"overallScore"`
	Levels       map[model.Category]model.Level `json:"levels"`
	TS           time.Time                      `json:"ts"`
}

func FromAssessment(a model.RiskAssessment) Event {
	return Event{
		Latitude:     a.Location.Latitude,
		Longitude:    a.Location.Longitude,
		H3Cell:       a.Metadata.H3Cell,
		OverallRisk:  a.OverallRisk,
		OverallScore: a.Indices.Overall,
		Levels:       a.Factors,
		TS:           a.Timestamp,
	}
}

type Publisher struct {
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	log     *slog.Logger
	stopped chan struct{}

	// mu guards closed; Publish holds it shared so Close cannot close
	// events under a send.
	mu     sync.RWMutex
	closed bool
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("riskevents: create async producer: %w", err)
	}
	return NewWithProducer(prod, topic, queueSize, log), nil
}

// NewWithProducer wraps an existing producer; Close closes it.
func NewWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan Event, queueSize),
		prod:    prod,
		log:     log,
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.log.Warn("riskevents: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.H3Cell),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncAssessmentEvent("producer_error")
				p.log.Warn("riskevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish never blocks; the event is dropped when the queue is full or the
// publisher is closed.
func (p *Publisher) Publish(a model.RiskAssessment) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		observability.IncAssessmentEvent("dropped")
		return
	}
	select {
	case p.events <- FromAssessment(a):
		observability.IncAssessmentEvent("queued")
	default:
		observability.IncAssessmentEvent("dropped")
	}
}

// Close drains queued events and closes the producer. Later calls are no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("riskevents: close producer: %w", err)
	}
	return nil
}
