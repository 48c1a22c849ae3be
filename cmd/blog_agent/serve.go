package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/blog-agent/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing synchronous, batch and queued blog generation plus post read-back.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, needs{database: true, redis: true, pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort > 0 {
		a.cfg.Server.Port = servePort
	}

	srv := server.New(server.Deps{
		Publisher: a.service,
		Jobs:      a.queue,
		Posts:     a.db,
		Config:    a.cfg,
		Logger:    a.logger,
	})
	return srv.Run(ctx)
}
