package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"szurutools/internal/config"
	"szurutools/internal/history"
	"szurutools/internal/logging"
	"szurutools/internal/services"
	"szurutools/internal/szuru"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// board returns a client for the configured board after checking that the
// connection settings are complete.
func (c *commandContext) board() (*szuru.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireBoard(); err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return szuru.NewFromConfig(cfg, logger)
}

// runContext tags ctx with a fresh correlation id and the run kind.
func runContext(cmd *cobra.Command, kind string) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = services.WithRequestID(ctx, uuid.NewString())
	return services.WithRunKind(ctx, kind)
}

// recordRun stores run in history when the database can be opened. History
// problems are logged and never fail the command.
func (c *commandContext) recordRun(ctx context.Context, run history.Run) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return
	}
	logger, _ := c.ensureLogger()
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "cli"))
	store, err := history.Open(cfg)
	if err != nil {
		logger.Warn("open run history", logging.Error(err))
		return
	}
	defer store.Close()
	if id, ok := services.RequestIDFromContext(ctx); ok {
		run.RequestID = id
	}
	if _, err := store.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("record run", logging.String("kind", run.Kind), logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
