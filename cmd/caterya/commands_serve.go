package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/caterya/internal/server"
)

func buildServeCmd(root *rootOptions) *cobra.Command {
	var httpAddr, grpcAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and gRPC scoring APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close()

			if httpAddr == "" {
				httpAddr = a.cfg.Server.HTTPAddr
			}
			if grpcAddr == "" {
				grpcAddr = a.cfg.Server.GRPCAddr
			}
			a.metrics.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			opts := []server.Option{
				server.WithLogger(a.logger),
				server.WithGatherer(a.metrics),
				server.WithModel(a.model),
			}
			if a.store != nil {
				opts = append(opts, server.WithRuns(a.store))
			}
			return server.New(a.eval, opts...).Run(ctx, httpAddr, grpcAddr)
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "HTTP listen address (default from config)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC listen address (default from config)")
	return cmd
}
