package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/blog-agent/internal/queue"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued generation jobs",
	Long:  `Pull generation jobs from the queue and publish them, retrying failures with exponential backoff.`,
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Jobs processed at once (overrides AI_QUEUE_CONCURRENCY)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, needs{database: true, redis: true, pipeline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	concurrency := a.cfg.Queue.Concurrency
	if workerConcurrency > 0 {
		concurrency = workerConcurrency
	}

	a.logger.Info("worker starting",
		zap.String("queue", a.queue.Name()),
		zap.Int("concurrency", concurrency))

	w := queue.NewWorker(a.queue, a.service.HandleJob, queue.WorkerOptions{
		Concurrency:  concurrency,
		PollInterval: a.cfg.Queue.PollInterval,
	}, a.logger)
	return w.Run(ctx)
}
