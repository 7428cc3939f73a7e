package correlate

import (
	"errors"

	"github.com/botirk38/lastcorr/similarity"
)

// DefaultProgressEvery is how many pairs pass between progress callbacks.
const DefaultProgressEvery = 10000

// ProgressFunc receives the number of pairs computed so far and the total.
// It may be called from several goroutines, one call at a time.
type ProgressFunc func(done, total int)

// Option represents a configuration option for a Correlator
type Option func(*Correlator) error

// WithMetric sets the similarity function. Pearson is used by default.
func WithMetric(fn similarity.Func) Option {
	return func(c *Correlator) error {
		if fn == nil {
			return errors.New("metric cannot be nil")
		}
		c.metric = fn
		return nil
	}
}

// WithWorkers sets how many rows are processed concurrently.
// One worker reproduces the sequential reference run.
func WithWorkers(n int) Option {
	return func(c *Correlator) error {
		if n < 1 {
			return errors.New("workers must be positive")
		}
		c.workers = n
		return nil
	}
}

// WithProgress registers fn to be called every `every` pairs.
func WithProgress(every int, fn ProgressFunc) Option {
	return func(c *Correlator) error {
		if fn == nil {
			return errors.New("progress func cannot be nil")
		}
		if every <= 0 {
			every = DefaultProgressEvery
		}
		c.progress = fn
		c.progressEvery = every
		return nil
	}
}
