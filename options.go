package lru

import (
	"log/slog"

	"github.com/workhorsy/lru-eviction-queue/metrics"
)

// options holds optional parameters for the concurrent wrappers.
type options struct {
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option is a functional option for [NewSynced], [NewSharded] and [NewShardedWithCount].
type Option func(*options)

// WithLogger sets the logger used to report evictions at debug level.
// By default nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRecorder sets the metrics recorder. By default events are discarded.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.recorder == nil {
		o.recorder = metrics.Noop{}
	}
	return o
}
