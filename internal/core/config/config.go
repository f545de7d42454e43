package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/climate-risk-cache/internal/cache/manager"
)

type InvalidationCfg struct {
	Enabled bool
	Driver  string
	Topic   string
	Brokers string
	GroupID string
}

type EventsCfg struct {
	Enabled   bool
	Topic     string
	Brokers   string
	QueueSize int
}

type RedisCfg struct {
	Addr     string
	Password string
	DB       int
	// SnapshotOnShutdown dumps the cache on graceful shutdown.
	SnapshotOnShutdown bool
	// RestoreOnStart is opt-in; restored entries get fresh partition TTLs.
	RestoreOnStart bool
	SnapshotTTL    time.Duration
	SnapshotPrefix string
}

type Config struct {
	Addr           string
	Version        string
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	MetricsEnabled bool
	MetricsAddr    string
	CORSOrigins    []string

	NASAEnabled bool
	NASABaseURL string
	NASATimeout time.Duration
	RandomSeed  uint64
	H3Res       int

	CacheTTLOvr     map[string]time.Duration
	CacheMaxKeysOvr map[string]int
	CacheJanitor    time.Duration
	HotnessHalfLife time.Duration

	Redis        RedisCfg
	Invalidation InvalidationCfg
	Events       EventsCfg
}

func FromEnv() Config {
	brokers := getenv("KAFKA_BROKERS", "localhost:9092")
	return Config{
		Addr:           getenv("ADDR", ":8090"),
		Version:        getenv("APP_VERSION", "dev"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		CORSOrigins:    splitCSV(getenv("CORS_ORIGINS", "*")),

		NASAEnabled: getbool("NASA_POWER_ENABLED", true),
		NASABaseURL: getenv("NASA_POWER_URL", "https://power.larc.nasa.gov/api/temporal/daily/point"),
		NASATimeout: getduration("NASA_POWER_TIMEOUT", 30*time.Second),
		RandomSeed:  getuint64("RANDOM_SEED", 0),
		H3Res:       getint("H3_RES", 8),

		CacheTTLOvr:     parseDurationMap(getenv("CACHE_TTL_OVERRIDES", "")),
		CacheMaxKeysOvr: parseIntMap(getenv("CACHE_MAX_KEYS_OVERRIDES", "")),
		CacheJanitor:    getduration("CACHE_JANITOR_INTERVAL", time.Minute),
		HotnessHalfLife: getduration("HOTNESS_HALF_LIFE", 10*time.Minute),

		Redis: RedisCfg{
			Addr:               getenv("REDIS_ADDR", ""),
			Password:           getenv("REDIS_PASSWORD", ""),
			DB:                 getint("REDIS_DB", 0),
			SnapshotOnShutdown: getbool("SNAPSHOT_ON_SHUTDOWN", true),
			RestoreOnStart:     getbool("SNAPSHOT_RESTORE_ON_START", false),
			SnapshotTTL:        getduration("SNAPSHOT_TTL", 24*time.Hour),
			SnapshotPrefix:     getenv("SNAPSHOT_PREFIX", "climate-risk-cache:snapshot"),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Driver:  getenv("INVALIDATION_DRIVER", "none"),
			Topic:   getenv("KAFKA_TOPIC", "climate-risk-invalidation"),
			Brokers: brokers,
			GroupID: getenv("KAFKA_GROUP_ID", "climate-risk-cache"),
		},
		Events: EventsCfg{
			Enabled:   getbool("ASSESSMENT_EVENTS_ENABLED", false),
			Topic:     getenv("ASSESSMENT_EVENTS_TOPIC", "climate-risk-assessments"),
			Brokers:   brokers,
			QueueSize: getint("ASSESSMENT_EVENTS_QUEUE", 1024),
		},
	}
}

// CachePartitions applies the TTL and max-keys overrides to the default
// partition table. Overrides for unknown partitions are ignored.
func (c Config) CachePartitions() map[string]manager.PartitionConfig {
	parts := manager.DefaultPartitions()
	for name, pc := range parts {
		if d, ok := c.CacheTTLOvr[name]; ok && d > 0 {
			pc.TTL = d
		}
		if n, ok := c.CacheMaxKeysOvr[name]; ok && n > 0 {
			pc.MaxKeys = n
		}
		parts[name] = pc
	}
	return parts
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getuint64(k string, def uint64) uint64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if x := strings.TrimSpace(p); x != "" {
			out = append(out, x)
		}
	}
	return out
}

// pairs yields the trimmed k, v of "k=v,k2=v2", skipping malformed items.
func pairs(s string, fn func(k, v string)) {
	for p := range strings.SplitSeq(strings.TrimSpace(s), ",") {
		kv := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if len(kv) != 2 {
			continue
		}
		k, v := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if k == "" {
			continue
		}
		fn(k, v)
	}
}

// parse "risk=30m,nasa=1h" into map
func parseDurationMap(s string) map[string]time.Duration {
	out := map[string]time.Duration{}
	pairs(s, func(k, v string) {
		if d, err := time.ParseDuration(v); err == nil {
			out[k] = d
		}
	})
	return out
}

// parse "risk=5000,nasa=100" into map
func parseIntMap(s string) map[string]int {
	out := map[string]int{}
	pairs(s, func(k, v string) {
		if n, err := strconv.Atoi(v); err == nil {
			out[k] = n
		}
	})
	return out
}
