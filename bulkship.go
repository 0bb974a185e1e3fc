// Package bulkship ships newline-delimited bulk operations to an
// Elasticsearch-compatible document store.
//
// Example usage:
//
//	cfg := bulkship.DefaultConfig()
//	cfg.StoreURL = "http://localhost:9200"
//	cfg.Index = "logs"
//	cfg.Input = "ops.ndjson"
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
//	sum, err := bulkship.Run(context.Background(), cfg, bulkship.Logger("info"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(sum.Failed, "operations failed")
//
// For embedding the batching pipeline directly, see package pkg/bulk.
package bulkship

import (
	"context"

	"github.com/bft-labs/bulkship/internal/agent"
	"github.com/bft-labs/bulkship/internal/cliconfig"
	"github.com/bft-labs/bulkship/pkg/bulk"
	"github.com/bft-labs/bulkship/pkg/log"
)

// Config holds the configuration for a shipping run.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config = cliconfig.Config

// Summary totals a finished run.
type Summary = agent.Summary

// Run reads operations from cfg.Input and ships them until the input ends or
// ctx is cancelled. Buffered operations are flushed before it returns.
func Run(ctx context.Context, cfg Config, logger log.Logger) (Summary, error) {
	return agent.Run(ctx, cfg, logger)
}

// NewPipeline starts a batching pipeline over transport. It is bulk.New.
func NewPipeline(transport bulk.Transport, template bulk.Template, opts ...bulk.Option) (*bulk.Sender, *bulk.Receiver, error) {
	return bulk.New(transport, template, opts...)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return cliconfig.DefaultConfig()
}

// Logger returns a console logger on stderr at the given level.
func Logger(level string) log.Logger {
	return agent.NewLogger(level)
}

// DefaultStoreURL is the default document store address.
const DefaultStoreURL = cliconfig.DefaultStoreURL
