package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"pandemic-dashboard/internal/models"
	"pandemic-dashboard/pkg/metrics"
)

// DefaultPlaybackInterval is the wall-clock time between animation frames
const DefaultPlaybackInterval = 200 * time.Millisecond

// Player steps a date index through a dataset for animation.
// Ticks advance the index only while playing and wrap to 0 after the last date.
type Player struct {
	mu      sync.Mutex
	index   int
	last    int
	playing bool
	metrics *metrics.Collector
}

// NewPlayer creates a paused player over frames dates, positioned at the last one
func NewPlayer(frames int, metricsCollector *metrics.Collector) (*Player, error) {
	if frames <= 0 {
		return nil, &models.ValidationError{
			Field:   "frames",
			Value:   strconv.Itoa(frames),
			Message: "playback needs at least one date",
		}
	}

	return &Player{
		index:   frames - 1,
		last:    frames - 1,
		metrics: metricsCollector,
	}, nil
}

// Play starts advancing on ticks
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = true
}

// Pause stops advancing on ticks; the index is kept
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

// Reset moves back to the first date without changing the play state
func (p *Player) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.index = 0
}

// Seek moves to idx
func (p *Player) Seek(idx int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx < 0 || idx > p.last {
		return &models.RangeError{Index: idx, Len: p.last + 1}
	}
	p.index = idx
	return nil
}

// Tick advances one date when playing and returns the current index and
// whether it moved
func (p *Player) Tick() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.playing {
		return p.index, false
	}

	p.index++
	if p.index > p.last {
		p.index = 0
	}
	if p.metrics != nil {
		p.metrics.PlaybackFramesTotal.Inc()
	}
	return p.index, true
}

// Index returns the current date index
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Playing reports whether ticks advance the index
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Run ticks every interval until ctx is done, calling onFrame with each new
// index. onFrame runs on the calling goroutine.
func (p *Player) Run(ctx context.Context, interval time.Duration, onFrame func(idx int)) error {
	if interval <= 0 {
		interval = DefaultPlaybackInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if idx, moved := p.Tick(); moved && onFrame != nil {
				onFrame(idx)
			}
		}
	}
}
