package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type Config struct {
	TargetURL      string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	Locations      int
	SampleEvery    uint64
	OutputPrefix   string
	RequestTimeout time.Duration
	Seed           int64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8090/api/v1/risk", "Risk endpoint URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.Locations, "locations", 256, "Distinct coordinates in pool")
	flag.Uint64Var(&cfg.SampleEvery, "sample-every", 10, "Write roughly one in N requests to the samples CSV")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Workload seed (0 = time based)")
	flag.Parse()
	return cfg
}

// request result (one per request)
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	Cache     string
	ErrorMsg  string
	Index     int
	Point     point
	Keep      bool
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	CacheHits     int64     `json:"cache_hits"`
	HitRatio      float64   `json:"hit_ratio"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	ZipfS         float64   `json:"zipf_s"`
	ZipfV         float64   `json:"zipf_v"`
	Locations     int       `json:"locations"`
	TargetURL     string    `json:"target"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	hits    int64
	latMs   []float64
}

func main() {
	cfg := loadConfig()
	if cfg.Locations < 1 || cfg.Concurrency < 1 {
		log.Fatalf("locations and concurrency must be positive")
	}
	if _, err := url.Parse(cfg.TargetURL); err != nil {
		log.Fatalf("bad target: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	points := makeLocations(cfg.Locations, rand.New(rand.NewSource(seed)))
	imax := uint64(len(points)) - 1

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Printf("open csv: %v", err)
		return
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "cache", "error", "idx", "lat,lon"})
		var agg aggregatedResult
		agg.latMs = make([]float64, 0, 1<<20)
		for s := range samplesChan {
			agg.total++
			if s.ErrorMsg == "" && s.Status >= 200 && s.Status < 300 {
				agg.success++
				agg.latMs = append(agg.latMs, float64(s.Latency.Microseconds())/1000.0)
				if s.Cache == "HIT" {
					agg.hits++
				}
			} else {
				agg.errors++
			}
			if !s.Keep {
				continue
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				fmt.Sprintf("%.3f", float64(s.Latency.Microseconds())/1000.0),
				fmt.Sprintf("%d", s.Status),
				s.Cache,
				s.ErrorMsg,
				fmt.Sprintf("%d", s.Index),
				s.Point.String(),
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Printf("csv flush error: %v", err)
		}
		resultsChan <- agg
	}()

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) locations=%d seed=%d",
		cfg.TargetURL, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(points), seed)

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for seq := uint64(0); ; seq++ {
				select {
				case <-ctx.Done():
					return
				default:
				}

				idx := int(zipfDist.Uint64())
				p := points[idx]

				u, _ := url.Parse(cfg.TargetURL)
				q := u.Query()
				q.Set("lat", fmt.Sprintf("%.4f", p.Lat))
				q.Set("lon", fmt.Sprintf("%.4f", p.Lon))
				u.RawQuery = q.Encode()

				startReq := time.Now()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
				req.Header.Set("Accept", "application/json")
				resp, err := httpClient.Do(req)
				result := sample{
					Timestamp: startReq,
					Latency:   time.Since(startReq),
					Index:     idx,
					Point:     p,
					Keep:      sampled(id, seq, cfg.SampleEvery),
				}
				if err != nil {
					result.ErrorMsg = err.Error()
				} else {
					result.Status = resp.StatusCode
					result.Cache = strings.ToUpper(resp.Header.Get("X-Cache"))
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode < 200 || resp.StatusCode >= 300 {
						result.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
					}
				}

				select {
				case samplesChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		CacheHits:     agg.hits,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Locations:     len(points),
		TargetURL:     cfg.TargetURL,
	}
	if agg.success > 0 {
		runSummary.HitRatio = float64(agg.hits) / float64(agg.success)
	}

	jsonFile, err := os.Create(filepath.Clean(jsonPath))
	if err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d hit=%.2f thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		agg.total, agg.success, agg.errors, runSummary.HitRatio, runSummary.ThroughputRPS,
		runSummary.P50Ms, runSummary.P95Ms, runSummary.P99Ms)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}
