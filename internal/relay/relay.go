package relay

import (
	"errors"
	"sync"
	"time"
)

// ErrStaleSample is returned when a position report's client timestamp is
// older than the staleness threshold at write time.
var ErrStaleSample = errors.New("stale location sample")

const (
	// DefaultStaleThreshold is the maximum age of a sample before it is
	// rejected on write and treated as absent on read.
	DefaultStaleThreshold = 30 * time.Second

	// DefaultSweepInterval is how often the background sweep evicts aged
	// entries that are never read again.
	DefaultSweepInterval = 60 * time.Second
)

// Sample is the latest position report for an active job. Samples are
// ephemeral: only the newest one per job is kept, and nothing is persisted.
type Sample struct {
	JobID            string
	Lat              float64
	Lng              float64
	Bearing          float64
	Speed            float64
	ClientTimestamp  time.Time
	ServerReceivedAt time.Time
}

// Options configures a Relay.
type Options struct {
	StaleThreshold time.Duration
	SweepInterval  time.Duration
}

// Relay is an in-memory store of the latest location sample per active job.
// Position reports arrive over an unreliable, possibly-buffered transport, so
// both write-time and read-time staleness checks are applied: a delayed report
// must not be accepted as current, and a key that goes cold without further
// writes must not serve an arbitrarily old position.
type Relay struct {
	mu      sync.RWMutex
	samples map[string]Sample

	staleThreshold time.Duration
	sweepInterval  time.Duration

	done chan struct{}
	wg   sync.WaitGroup

	// now is swapped in tests to control staleness.
	now func() time.Time
}

// New creates a Relay. Zero option fields fall back to defaults.
func New(opts Options) *Relay {
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = DefaultStaleThreshold
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	return &Relay{
		samples:        make(map[string]Sample),
		staleThreshold: opts.StaleThreshold,
		sweepInterval:  opts.SweepInterval,
		done:           make(chan struct{}),
		now:            time.Now,
	}
}

// Start launches the background staleness sweep.
func (r *Relay) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep and waits for it to exit.
func (r *Relay) Stop() {
	close(r.done)
	r.wg.Wait()
}

// Set stores a position report, overwriting any prior sample for the job.
// Reports older than the staleness threshold are rejected and not stored.
func (r *Relay) Set(jobID string, s Sample) error {
	now := r.now()
	if now.Sub(s.ClientTimestamp) > r.staleThreshold {
		return ErrStaleSample
	}

	s.JobID = jobID
	s.ServerReceivedAt = now

	r.mu.Lock()
	r.samples[jobID] = s
	r.mu.Unlock()

	return nil
}

// Get returns the stored sample for a job. It reports false when no sample
// exists or the stored sample has aged past the threshold; an aged sample is
// evicted lazily on read rather than waiting for the sweep.
func (r *Relay) Get(jobID string) (Sample, bool) {
	r.mu.RLock()
	s, ok := r.samples[jobID]
	r.mu.RUnlock()

	if !ok {
		return Sample{}, false
	}

	if r.now().Sub(s.ServerReceivedAt) > r.staleThreshold {
		r.mu.Lock()
		// Re-check under the write lock: a fresh write may have landed.
		if cur, ok := r.samples[jobID]; ok && cur.ServerReceivedAt.Equal(s.ServerReceivedAt) {
			delete(r.samples, jobID)
		}
		r.mu.Unlock()
		return Sample{}, false
	}

	return s, true
}

// Remove deletes the sample for a job. Called on job termination.
func (r *Relay) Remove(jobID string) {
	r.mu.Lock()
	delete(r.samples, jobID)
	r.mu.Unlock()
}

// Sweep evicts every sample older than the staleness threshold. It runs on the
// sweep interval but is exported so callers can force a pass.
func (r *Relay) Sweep() {
	now := r.now()

	r.mu.Lock()
	for jobID, s := range r.samples {
		if now.Sub(s.ServerReceivedAt) > r.staleThreshold {
			delete(r.samples, jobID)
		}
	}
	r.mu.Unlock()
}

// Len returns the number of stored samples.
func (r *Relay) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.samples)
}
