// Package hotness keeps an exponentially decaying demand score per H3 cell,
// fed by risk requests and reported through the cache stats.
package hotness

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/climate-risk-cache/internal/core/observability"
)

const (
	numShards = 64
	// scores below this are dropped by Prune
	minScore = 0.01
)

type Tracker struct {
	name     string
	halfLife time.Duration
	clock    clockwork.Clock

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

// Cell is one entry of Top.
type Cell struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

type Option func(*Tracker)

func WithClock(c clockwork.Clock) Option { return func(t *Tracker) { t.clock = c } }
func WithName(n string) Option           { return func(t *Tracker) { t.name = n } }

// New returns a tracker whose scores halve every halfLife (default one minute).
func New(halfLife time.Duration, opts ...Option) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{name: "risk", halfLife: halfLife, clock: clockwork.NewRealClock()}
	for _, o := range opts {
		o(t)
	}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

func (t *Tracker) Inc(cell string) {
	if cell == "" {
		return
	}
	s := t.pick(cell)
	n := t.clock.Now()

	s.mu.Lock()
	c := s.m[cell]
	if c == nil {
		s.m[cell] = &counter{score: 1, last: n}
	} else {
		c.score = decay(c.score, n.Sub(c.last).Seconds(), t.halfLife.Seconds()) + 1.0
		c.last = n
	}
	s.mu.Unlock()

	observability.SetHotCells(t.name, t.Size())
}

func (t *Tracker) Score(cell string) float64 {
	if cell == "" {
		return 0
	}
	s := t.pick(cell)
	n := t.clock.Now()

	s.mu.RLock()
	c := s.m[cell]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	return decay(score, n.Sub(last).Seconds(), t.halfLife.Seconds())
}

func (t *Tracker) Reset(cells ...string) {
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		s := t.pick(cell)
		s.mu.Lock()
		delete(s.m, cell)
		s.mu.Unlock()
	}
	observability.SetHotCells(t.name, t.Size())
}

// Top returns up to n cells by current score, highest first. Ties are
// ordered by cell id.
func (t *Tracker) Top(n int) []Cell {
	if n <= 0 {
		return nil
	}
	now := t.clock.Now()
	hl := t.halfLife.Seconds()
	var all []Cell
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for id, c := range s.m {
			all = append(all, Cell{Cell: id, Score: decay(c.score, now.Sub(c.last).Seconds(), hl)})
		}
		s.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Cell < all[j].Cell
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Prune forgets cells whose score has decayed to noise and returns how many
// were removed.
func (t *Tracker) Prune() int {
	now := t.clock.Now()
	hl := t.halfLife.Seconds()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for id, c := range s.m {
			if decay(c.score, now.Sub(c.last).Seconds(), hl) < minScore {
				delete(s.m, id)
				removed++
			}
		}
		s.mu.Unlock()
	}
	observability.SetHotCells(t.name, t.Size())
	return removed
}

// StartPruner runs Prune every interval until stop is closed.
func (t *Tracker) StartPruner(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	tk := t.clock.NewTicker(interval)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-tk.Chan():
				t.Prune()
			case <-stop:
				return
			}
		}
	}()
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	// e^(-λt)
	return score * math.Exp(-math.Ln2/halfLife*dt)
}

func (t *Tracker) pick(cell string) *shard {
	h := xxhash.Sum64String(cell)
	return &t.shards[h&(numShards-1)]
}
