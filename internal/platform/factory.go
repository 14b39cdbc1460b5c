package platform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/moments/pkg/adapters/fs"
	"github.com/aretw0/moments/pkg/adapters/memory"
	"github.com/aretw0/moments/pkg/adapters/sqlite"
	"github.com/aretw0/moments/pkg/core"
)

// DatabaseFile is the file name the sqlite adapter uses when given a directory.
const DatabaseFile = "moments.db"

// New builds and initializes a moment service.
// The uri argument is adapter-specific: a directory for "fs", a database file
// (or a directory holding moments.db) for "sqlite", ignored for "memory".
//
//	svc, err := platform.New("./moments", platform.WithAdapter("sqlite"))
func New(uri string, opts ...Option) (*core.Service, error) {
	o := buildOptions(opts)

	repo, err := open(uri, o)
	if err != nil {
		return nil, err
	}

	svc := core.NewService(repo, o.service...)
	if err := svc.Init(context.Background()); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return svc, nil
}

// Open returns the repository selected by opts without initializing it.
func Open(uri string, opts ...Option) (core.Repository, error) {
	return open(uri, buildOptions(opts))
}

func open(uri string, o *options) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	switch o.adapter {
	case "memory":
		return memory.NewRepository(), nil
	case "fs", "":
		return fs.NewRepository(fs.Config{
			Path:         resolvePath(uri, o),
			MustExist:    o.mustExist,
			SystemDir:    o.systemDir,
			Format:       o.format,
			Strict:       o.strict,
			Logger:       o.logger,
			ErrorHandler: o.errorHandler,
		}), nil
	case "sqlite":
		path := resolvePath(uri, o)
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, DatabaseFile)
		}
		return sqlite.NewRepository(sqlite.Config{Path: path, Logger: o.logger}), nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

func resolvePath(uri string, o *options) string {
	useTemp := o.forceTemp || (o.devSafety && IsDevRun())
	resolved := ResolveStorePath(uri, useTemp)
	if useTemp && o.logger != nil {
		o.logger.Warn("running in SAFE MODE (dev sandbox)", "original_path", uri, "resolved_path", resolved)
	}
	return resolved
}
