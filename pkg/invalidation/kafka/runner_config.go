package kafka

import (
	"strings"
	"time"
)

type Driver string

const (
	DriverNone  Driver = "none"
	DriverKafka Driver = "kafka"
)

type InvalidationConfig struct {
	Enabled bool
	Driver  Driver

	Brokers  []string
	Topic    string
	GroupID  string
	ClientID string

	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
}

// DefaultConfig is disabled; config.FromEnv fills in the environment.
func DefaultConfig() InvalidationConfig {
	return InvalidationConfig{
		Driver:           DriverNone,
		Brokers:          []string{"localhost:9092"},
		Topic:            "climate-risk-invalidation",
		GroupID:          "climate-risk-cache",
		ClientID:         "climate-risk-cache",
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    false,
	}
}

// SplitCSV splits a comma separated list, dropping blanks.
func SplitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}
