// Package app wires configuration, storage and services into one value shared
// by the server, the CLI tools and the admin console.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/account"
	"github.com/notepid/lexcircle/internal/config"
	"github.com/notepid/lexcircle/internal/conversation"
	"github.com/notepid/lexcircle/internal/db"
	"github.com/notepid/lexcircle/internal/group"
	"github.com/notepid/lexcircle/internal/logging"
	"github.com/notepid/lexcircle/internal/message"
	"github.com/notepid/lexcircle/internal/post"
	"github.com/notepid/lexcircle/internal/redaction"
)

type App struct {
	ConfigPath string
	Config     *config.Config
	DB         *db.DB
	Logger     *zap.Logger
	Registry   *prometheus.Registry

	Accounts     *account.Repo
	Groups       *group.Repo
	Messages     *message.Repo
	Posts        *post.Repo
	Conversation *conversation.Controller
	Jobs         *redaction.JobRepo
	Redaction    *redaction.Service
	Reconciler   *redaction.Reconciler
}

// Option customises New.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger replaces the logger built from the config. The admin console
// passes a no-op logger so output does not tear the screen.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func New(configPath string, opts ...Option) (*App, func(), error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := o.logger
	if logger == nil {
		if logger, err = logging.New(cfg.Log); err != nil {
			return nil, nil, err
		}
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}
	if dir := filepath.Dir(cfg.Paths.Database); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	database, err := db.Open(cfg.Paths.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Database opened", zap.String("path", cfg.Paths.Database))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := redaction.NewMetrics(reg)

	a := &App{
		ConfigPath: configPath,
		Config:     cfg,
		DB:         database,
		Logger:     logger,
		Registry:   reg,
		Accounts:   account.NewRepo(database.DB),
		Groups:     group.NewRepo(database.DB),
		Messages:   message.NewRepo(database.DB),
		Posts:      post.NewRepo(database.DB),
		Jobs:       redaction.NewJobRepo(database.DB),
	}
	a.Conversation = conversation.NewController(a.Groups, a.Messages, logger)
	a.Redaction = redaction.NewService(a.Accounts, a.Messages, a.Posts, cfg.Redaction.BatchSize, metrics, logger)
	a.Reconciler = redaction.NewReconciler(a.Redaction, a.Jobs, redaction.ReconcilerConfig{
		Interval:    cfg.Redaction.ReconcileInterval,
		Workers:     cfg.Redaction.Workers,
		MaxAttempts: cfg.Redaction.MaxAttempts,
	}, metrics, logger)

	cleanup := func() {
		_ = database.Close()
		_ = logger.Sync()
	}

	return a, cleanup, nil
}
