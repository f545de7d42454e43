package main

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/cespare/xxhash/v2"
)

type point struct{ Lat, Lon float64 }

func (p point) String() string { return fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lon) }

// hot spots get repeated traffic so the risk partition sees real hits
var hotCenters = []point{
	{23.8103, 90.4125},   // Dhaka
	{19.0760, 72.8777},   // Mumbai
	{6.5244, 3.3792},     // Lagos
	{40.7128, -74.0060},  // New York
	{-23.5505, -46.6333}, // São Paulo
	{35.6762, 139.6503},  // Tokyo
}

// makeLocations builds count points: a quarter (at least len(hotCenters))
// jittered around the hot centers, the rest uniform over the globe. Points
// are rounded to 4 decimals so repeats produce identical cache keys.
func makeLocations(count int, r *rand.Rand) []point {
	out := make([]point, 0, count)
	hot := max(len(hotCenters), count/4)
	for i := 0; i < hot && len(out) < count; i++ {
		c := hotCenters[i%len(hotCenters)]
		out = append(out, point{
			Lat: round4(clamp(c.Lat+(r.Float64()-0.5)*0.2, -90, 90)),
			Lon: round4(clamp(c.Lon+(r.Float64()-0.5)*0.2, -180, 180)),
		})
	}
	for len(out) < count {
		out = append(out, point{
			Lat: round4(-60 + r.Float64()*130),
			Lon: round4(-180 + r.Float64()*360),
		})
	}
	return out
}

func round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

// sampled decides whether a request is written to the samples CSV. The
// decision is a hash of worker and sequence number so reruns with the same
// flags keep the same rows.
func sampled(worker int, seq uint64, every uint64) bool {
	if every <= 1 {
		return true
	}
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(worker))
	binary.LittleEndian.PutUint64(b[8:], seq)
	return xxhash.Sum64(b[:])%every == 0
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
