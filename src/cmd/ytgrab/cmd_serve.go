package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/control"
	"github.com/yhonda-ohishi-pub-dev/ytgrab/src/internal/update"
	"google.golang.org/grpc"
)

func newServeCommand(s *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local control service and the release poller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), s.app)
		},
	}
}

func serve(parent context.Context, a *app) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := a.manager()
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", a.cfg.Control.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Control.Listen, err)
	}

	grpcSrv := grpc.NewServer()
	control.RegisterControlServer(grpcSrv, control.NewServer(ctx, mgr, a.hub, a.logger.Logger))

	var poller *update.Poller
	if a.cfg.Control.PollInterval > 0 {
		poller = update.NewPoller(mgr, a.cfg.Control.PollInterval, a.hub.PublishCheck, a.logger.Logger)
		poller.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("control service listening", "addr", listener.Addr().String())
		errCh <- grpcSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case err = <-errCh:
		a.logger.Error("control service stopped", "err", err)
	}

	if poller != nil {
		poller.Stop()
	}
	grpcSrv.GracefulStop()
	return err
}
