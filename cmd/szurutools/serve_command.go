package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"szurutools/internal/deps"
	"szurutools/internal/downloader"
	"szurutools/internal/history"
	"szurutools/internal/importer"
	"szurutools/internal/logging"
	"szurutools/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), ctx, bind)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default from config)")
	return cmd
}

func runServer(cmdCtx context.Context, ctx *commandContext, bind string) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	board, err := ctx.board()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	requirements := deps.Requirements(cfg)
	for _, status := range deps.CheckBinaries(requirements) {
		if !status.Available {
			logging.WarnWithHint(logger, "dependency unavailable", "dependency_missing",
				fmt.Sprintf("install %s or set import.gallery_dl_binary", status.Command),
				logging.String("dependency", status.Name),
				logging.String("detail", status.Detail),
			)
		}
	}
	if missing := deps.MissingRequired(deps.CheckBinaries(requirements)); len(missing) > 0 {
		return fmt.Errorf("required dependency %s unavailable: %s", missing[0].Name, missing[0].Detail)
	}

	fetcher, err := downloader.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open run history", logging.Error(err))
		return err
	}
	defer store.Close()

	if bind == "" {
		bind = cfg.Server.Bind
	}
	srv, err := server.New(server.Options{
		Bind:     bind,
		APIToken: cfg.Server.APIToken,
		LockPath: cfg.ServerLockPath(),
		Board:    board,
		Importer: importer.New(fetcher, board, importer.Options{
			DefaultSafety:      cfg.Import.DefaultSafety,
			ExpandImplications: cfg.Import.ExpandImplications,
			KeepDownloads:      cfg.Import.KeepDownloads,
		}, logger),
		History:      store,
		Requirements: requirements,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if cfg.Server.APIToken == "" {
		logging.WarnWithHint(logger, "api authentication disabled", "api_auth_disabled",
			"set server.api_token (or SZURUTOOLS_API_TOKEN) to require a bearer token")
	}
	if err := srv.Run(signalCtx); err != nil {
		if errors.Is(err, server.ErrAlreadyRunning) {
			return fmt.Errorf("%w (lock %s)", err, cfg.ServerLockPath())
		}
		return err
	}
	return nil
}
