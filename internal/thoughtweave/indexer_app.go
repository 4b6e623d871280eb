package thoughtweave

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/logger"

	"github.com/kart-io/thoughtweave/internal/indexer"
	"github.com/kart-io/thoughtweave/pkg/infra/app"
	"github.com/kart-io/thoughtweave/pkg/infra/pool"
)

const (
	indexerAppName        = "thoughtweave-indexer"
	indexerAppDescription = `ThoughtWeave Indexer Worker

Drains the index queue, enriching thoughts (embedding, summary, smart
tags, related links) and conversations (decrypted transcript embedding
and summary), and publishes them into the vector index and the metadata
store's derived fields.

Scale this binary horizontally; the queue's work-queue delivery ensures
each job is processed once.`
)

// NewIndexerApp creates the indexer worker application.
func NewIndexerApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(indexerAppName),
		app.WithDescription(indexerAppDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return RunIndexer(opts)
		}),
	)
}

// RunIndexer wires the worker's dependencies and drains the queue until
// SIGINT/SIGTERM.
func RunIndexer(opts *Options) error {
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting ThoughtWeave indexer...")

	if err := pool.InitGlobal(); err != nil {
		return fmt.Errorf("failed to initialize worker pools: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	deps, err := buildCore(ctx, opts)
	if err != nil {
		return err
	}
	defer deps.Close()

	worker := indexer.NewWorker(deps.Raw, deps.Meta, deps.Vectors, deps.Queue, deps.Envelope, deps.Embedder, deps.Chat)
	logger.Info("ThoughtWeave indexer is ready")

	if err := worker.Run(ctx, opts.Indexer.BatchSize, opts.Indexer.Wait); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("ThoughtWeave indexer stopped")
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM. A second
// signal force-exits.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx, cancel
}
