package platform

import (
	"log/slog"

	"github.com/aretw0/moments/pkg/core"
)

// options holds the internal configuration for a moments store.
type options struct {
	repository core.Repository
	logger     *slog.Logger
	adapter    string

	systemDir    string
	format       string
	strict       bool
	mustExist    bool
	forceTemp    bool
	devSafety    bool
	errorHandler func(error)

	service []core.ServiceOption
}

// Option defines a functional option for configuring the store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:   "fs",
		devSafety: true,
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithAdapter selects the storage adapter by name: "fs" (default), "sqlite"
// or "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithRepository injects a custom storage adapter. The adapter named by
// WithAdapter is then skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithLogger sets the logger for the service and the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.service = append(o.service, core.WithLogger(logger))
	}
}

// WithFormat selects the document format of new fs records ("json" or "yaml").
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = format
	}
}

// WithSystemDir names the hidden directory of the fs adapter. Defaults to
// ".moments".
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithStrict rejects fs documents carrying unknown fields.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithMustExist fails instead of creating a missing store directory.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithForceTemp forces the store into a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run` or
// `go test`. By default (true) such runs are re-rooted into a temporary
// directory so they cannot touch real data.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = enabled
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied), which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithClock replaces the wall clock used for timestamps and countdowns.
func WithClock(c core.Clock) Option {
	return func(o *options) {
		o.service = append(o.service, core.WithClock(c))
	}
}

// WithObserver registers an Observer, such as metrics.Collector.
func WithObserver(obs core.Observer) Option {
	return func(o *options) {
		o.service = append(o.service, core.WithObserver(obs))
	}
}

// WithEventBuffer bounds the pending deliveries of each subscription.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.service = append(o.service, core.WithEventBuffer(size))
	}
}

// WithReadOnly makes every write fail with core.ErrReadOnly. Read-only stores
// bypass the dev sandbox since they cannot cause damage.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.service = append(o.service, core.WithReadOnly(enabled))
		if enabled {
			o.devSafety = false
		}
	}
}

// WithWatch forwards external edits of files matching pattern to
// subscribers. Only the fs adapter supports watching.
func WithWatch(pattern string) Option {
	return func(o *options) {
		o.service = append(o.service, core.WithWatch(pattern))
	}
}
