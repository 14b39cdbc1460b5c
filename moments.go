package moments

import (
	"log/slog"

	"github.com/aretw0/moments/internal/platform"
	"github.com/aretw0/moments/pkg/core"
)

// --- Types ---

// Service is the moment service returned by New.
type Service = core.Service

// Record is a persisted moment.
type Record = core.Record

// Entity is a record with its computed display fields.
type Entity = core.Entity

// Input is the user-editable part of a moment.
type Input = core.Input

// RepeatFrequency is the recurrence rule of a moment.
type RepeatFrequency = core.RepeatFrequency

const (
	RepeatNone    = core.RepeatNone
	RepeatDaily   = core.RepeatDaily
	RepeatWeekly  = core.RepeatWeekly
	RepeatMonthly = core.RepeatMonthly
	RepeatYearly  = core.RepeatYearly
)

// --- Configuration ---

// Option defines a functional option for configuring a moments store.
type Option = platform.Option

// Config is the environment configuration read by LoadConfig.
type Config = platform.Config

// WithAdapter selects the storage adapter by name ("fs", "sqlite", "memory").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRepository injects a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithLogger sets the logger for the service and the adapter.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithFormat selects the document format of new fs records ("json" or "yaml").
func WithFormat(format string) Option {
	return platform.WithFormat(format)
}

// WithSystemDir names the hidden directory of the fs adapter.
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithStrict rejects fs documents carrying unknown fields.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithMustExist fails instead of creating a missing store directory.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithForceTemp forces the store into a temporary directory.
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithClock replaces the wall clock.
func WithClock(c core.Clock) Option {
	return platform.WithClock(c)
}

// WithObserver registers an Observer, such as metrics.Collector.
func WithObserver(o core.Observer) Option {
	return platform.WithObserver(o)
}

// WithEventBuffer bounds the pending deliveries of each subscription.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithReadOnly makes every write fail with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithWatch forwards external edits of files matching pattern to subscribers.
func WithWatch(pattern string) Option {
	return platform.WithWatch(pattern)
}

// LoadConfig reads the MOMENTS_* environment variables.
func LoadConfig() (Config, error) {
	return platform.LoadConfig()
}

// --- Factory ---

// New creates and initializes a moment service. Close it when done.
func New(path string, opts ...Option) (*Service, error) {
	return platform.New(path, opts...)
}

// Open returns the configured repository without initializing it.
func Open(path string, opts ...Option) (core.Repository, error) {
	return platform.Open(path, opts...)
}

// --- Safety & Utils ---

// ResolveStorePath determines the actual store path based on safety rules.
func ResolveStorePath(userPath string, forceTemp bool) string {
	return platform.ResolveStorePath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindStoreRoot looks upwards from startDir for a moments store.
func FindStoreRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
