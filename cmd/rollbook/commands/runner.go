package commands

import (
	"database/sql"

	"github.com/casteleyn/rollbook/config"
	"github.com/casteleyn/rollbook/db"
	"github.com/casteleyn/rollbook/dirclient"
	"github.com/casteleyn/rollbook/errors"
	"github.com/casteleyn/rollbook/lifecycle"
	"github.com/casteleyn/rollbook/logger"
	"github.com/casteleyn/rollbook/pipeline"
	"github.com/casteleyn/rollbook/report"
)

// session is everything a pipeline-running command needs. Close it when the
// command finishes to flush the lifecycle cache and release the database.
type session struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	cache    *lifecycle.Cache
	database *sql.DB
}

// openSession loads configuration and wires the directory client, report
// parser, and lifecycle cache into a pipeline runner.
func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if cfg.Directory.BaseURL == "" {
		return nil, errors.WithHint(
			errors.New("directory.base_url is not configured"),
			"set directory.base_url in rollbook.toml or ROLLBOOK_DIRECTORY_BASE_URL",
		)
	}

	database, err := db.OpenWithMigrations(cfg.Cache.Path, logger.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open lifecycle cache database")
	}

	cache, err := lifecycle.OpenCache(database, logger.Logger)
	if err != nil {
		database.Close()
		return nil, errors.Wrap(err, "failed to load lifecycle cache")
	}

	client := dirclient.New(cfg.Directory.BaseURL, cfg.Directory.APIKey, logger.Logger)
	runner := pipeline.NewRunner(pipeline.Params{
		Config:  cfg,
		Client:  client,
		Reports: client,
		Parser:  report.NewJSONParser(logger.Logger),
		Cache:   cache,
		Logger:  logger.Logger,
	})

	return &session{cfg: cfg, runner: runner, cache: cache, database: database}, nil
}

// close flushes any lifecycle dates learned during the run before releasing
// the database.
func (s *session) close() {
	if err := s.cache.Flush(); err != nil {
		logger.Errorw("Failed to flush lifecycle cache", "error", err)
	}
	if err := s.database.Close(); err != nil {
		logger.Errorw("Failed to close cache database", "error", err)
	}
}
