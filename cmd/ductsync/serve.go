package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ductsync/internal/api"
	"ductsync/internal/server"
	"ductsync/internal/util"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var (
		port int
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if port > 0 {
				a.cfg.Server.Port = port
			}
			if !a.cfg.Server.DevMode {
				// 端口被占用时顺延
				p, err := util.FindAvailablePort(a.cfg.Server.Port, 10)
				if err != nil {
					return err
				}
				a.cfg.Server.Port = p
			}

			h := api.NewHandler(api.Deps{
				Parser:      a.parser,
				Mapping:     a.mapping,
				Processor:   a.processor,
				Coordinator: a.coordinator,
				Logs:        a.store,
				ExportDir:   a.exportDir,
				Logger:      a.logger,
			})
			srv := server.NewServer(h, a.cfg.Server.DevMode, a.logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run(fmt.Sprintf(":%d", a.cfg.Server.Port))
			}()
			url := fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", url)
			if open {
				if err := util.OpenBrowser(url); err != nil {
					a.logger.Warn("open browser failed", zap.Error(err))
				}
			}

			select {
			case err := <-errCh:
				return err
			case <-runCtx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("shutdown failed", zap.Error(err))
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides config)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the status page in a browser")
	return cmd
}
