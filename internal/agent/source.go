package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/bulkship/internal/cliconfig"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/internal/source"
)

// stdin is the input used for cliconfig.StdinInput.
var stdin io.Reader = os.Stdin

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openSource opens the configured input. The returned closer is never nil.
func openSource(cfg cliconfig.Config, logger ports.Logger) (source.Source, io.Closer, error) {
	if cfg.Input == cliconfig.StdinInput {
		return source.NewReader(stdin), nopCloser{}, nil
	}

	if cfg.Follow {
		f, err := source.Follow(cfg.Input, source.FollowConfig{Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("follow input: %w", err)
		}
		return f, f, nil
	}

	file, err := os.Open(cfg.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return source.NewReader(file), file, nil
}

type pushFunc func(ctx context.Context, op domain.Operation) error

// pump reads operations from src and pushes them until the input ends or ctx
// is done. Malformed lines are logged and counted.
func pump(ctx context.Context, src source.Source, push pushFunc, logger ports.Logger) (read, skipped int, err error) {
	for {
		op, err := src.Next(ctx)
		if err != nil {
			var lerr *source.LineError
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil:
				return read, skipped, nil
			case errors.As(err, &lerr):
				skipped++
				logger.Warn("skipping malformed input line",
					ports.Int("line", lerr.Line),
					ports.Err(lerr.Err),
				)
				continue
			default:
				return read, skipped, fmt.Errorf("read input: %w", err)
			}
		}

		if err := push(ctx, op); err != nil {
			if ctx.Err() != nil {
				return read, skipped, nil
			}
			return read, skipped, err
		}
		read++
	}
}
