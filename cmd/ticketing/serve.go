package main

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/helpdesk-labs/ticketing/internal/worker"
)

var seedAdmin string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the session and ticket service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), "api", serveOptions{api: true})
	},
}

var estimatorCmd = &cobra.Command{
	Use:   "estimator",
	Short: "Run the stateless estimation service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), "estimator", serveOptions{estimator: true})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run both services, plus the notification worker when enabled",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), "serve", serveOptions{api: true, estimator: true, worker: true})
	},
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the notification worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), "worker", serveOptions{worker: true, forceWorker: true})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{apiCmd, serveCmd} {
		cmd.Flags().StringVar(&seedAdmin, "seed-admin", "", "create an admin `name:password` (in-memory storage only)")
	}
}

type serveOptions struct {
	api         bool
	estimator   bool
	worker      bool
	forceWorker bool
}

func run(ctx context.Context, name string, opts serveOptions) error {
	rt, err := newRuntime(name)
	if err != nil {
		return err
	}
	defer rt.close()

	g, ctx := errgroup.WithContext(ctx)

	if opts.api {
		ticketing, err := buildTicketingApp(ctx, rt)
		if err != nil {
			return err
		}
		defer ticketing.close()
		if err := ticketing.seedAdmin(ctx, seedAdmin, rt.logger); err != nil {
			return err
		}
		g.Go(func() error {
			return listen(ctx, ticketing.app, rt.cfg.App.Addr(), rt.logger)
		})
	}

	if opts.estimator {
		app := buildEstimatorApp(rt)
		g.Go(func() error {
			return listen(ctx, app, rt.cfg.Estimator.Addr(), rt.logger)
		})
	}

	if opts.worker && (opts.forceWorker || rt.cfg.Notification.Enabled) {
		handler := worker.NewNotificationHandler(rt.logger, rt.metrics)
		w := worker.NewWorker(rt.redisOpt(), rt.cfg.Notification, handler, rt.logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	return g.Wait()
}
