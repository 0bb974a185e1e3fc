// Package agent runs the bulkship pipeline: it reads operations from the
// configured input, ships them to the store in batches, and reports every
// failed operation.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	httpadapter "github.com/bft-labs/bulkship/internal/adapters/http"
	"github.com/bft-labs/bulkship/internal/cliconfig"
	"github.com/bft-labs/bulkship/internal/metrics"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/pkg/bulk"
	"github.com/bft-labs/bulkship/pkg/log"
)

// UserAgent is sent with every bulk request.
const UserAgent = "bulkship/" + bulk.Version

// Summary totals one run.
type Summary struct {
	// Read is the number of operations read and pushed.
	Read int
	// Skipped is the number of malformed input lines.
	Skipped int
	Batches int
	// Succeeded and Failed count per-operation outcomes.
	Succeeded int
	Failed    int
}

// Run ships operations from cfg.Input until the input ends or ctx is done,
// then drains the pipeline. Cancellation is a normal shutdown: buffered
// operations are still sent. cfg must already be validated.
func Run(ctx context.Context, cfg cliconfig.Config, logger ports.Logger) (Summary, error) {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	var sum Summary

	src, closer, err := openSource(cfg, logger)
	if err != nil {
		return sum, err
	}
	defer closer.Close()

	emitter := metrics.NewEmitter()
	if cfg.MetricsAddr != "" {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		served := make(chan struct{})
		go func() {
			defer close(served)
			serveMetrics(metricsCtx, cfg.MetricsAddr, emitter.Handler(), logger)
		}()
		defer func() {
			stopMetrics()
			<-served
		}()
	}

	transport := httpadapter.NewTransport(httpadapter.TransportConfig{
		BaseURL:    cfg.StoreURL,
		Timeout:    cfg.HTTPTimeout,
		RetryCount: cfg.Retries,
		Username:   cfg.Username,
		Password:   cfg.Password,
		APIKey:     cfg.APIKey,
		UserAgent:  UserAgent,
	}, logger)

	opts := []bulk.Option{
		bulk.WithMaxBatchBytes(cfg.MaxBatchBytes),
		bulk.WithFlushInterval(cfg.FlushInterval),
		bulk.WithMaxInFlight(cfg.MaxInFlight),
		bulk.WithInputCapacity(cfg.InputCapacity),
		bulk.WithLogger(logger),
		bulk.WithEventHandler(emitter),
	}
	if cfg.DispatchRate > 0 {
		burst := int(math.Ceil(cfg.DispatchRate))
		opts = append(opts, bulk.WithDispatchRate(rate.Limit(cfg.DispatchRate), burst))
	}

	template := bulk.Template{Index: cfg.Index, Type: cfg.Type, Params: cfg.Params()}
	sender, receiver, err := bulk.New(transport, template, opts...)
	if err != nil {
		return sum, err
	}

	logger.Info("pipeline started",
		ports.String("input", cfg.Input),
		ports.Bool("follow", cfg.Follow),
		ports.String("store", cfg.StoreURL),
		ports.String("index", cfg.Index),
	)

	type pumpResult struct {
		read, skipped int
		err           error
	}
	pumped := make(chan pumpResult, 1)
	go func() {
		defer sender.Close()
		read, skipped, err := pump(ctx, src, sender.Push, logger)
		pumped <- pumpResult{read, skipped, err}
	}()

	for res := range receiver.C() {
		sum.add(res)
		report(res, logger)
	}

	p := <-pumped
	sum.Read, sum.Skipped = p.read, p.skipped

	logger.Info("pipeline finished",
		ports.Int("read", sum.Read),
		ports.Int("skipped", sum.Skipped),
		ports.Int("batches", sum.Batches),
		ports.Int("succeeded", sum.Succeeded),
		ports.Int("failed", sum.Failed),
	)
	return sum, p.err
}

func (s *Summary) add(res bulk.Result) {
	s.Batches++
	if res.Response == nil {
		return
	}
	failed := len(res.Response.Failed())
	s.Failed += failed
	s.Succeeded += len(res.Response.Items) - failed
}

// report logs the operations the store rejected. Whole-batch failures are
// already logged by the pipeline.
func report(res bulk.Result, logger ports.Logger) {
	if res.Err != nil || res.Response == nil {
		return
	}
	for _, item := range res.Response.Failed() {
		logger.Warn("operation failed",
			ports.Uint64("batch", res.Batch),
			ports.String("action", item.Action.String()),
			ports.String("index", item.Index),
			ports.String("id", item.ID),
			ports.Int("status", item.Status),
			ports.Err(item.Err),
		)
	}
}

// serveMetrics exposes handler on addr until ctx is done. It returns once the
// server has shut down.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger ports.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", ports.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", ports.Err(fmt.Errorf("listen %s: %w", addr, err)))
	}
	<-stopped
}
