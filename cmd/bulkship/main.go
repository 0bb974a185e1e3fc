package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/bulkship/internal/agent"
	"github.com/bft-labs/bulkship/internal/cliconfig"
	"github.com/bft-labs/bulkship/internal/stubstore"
	"github.com/bft-labs/bulkship/pkg/log"
)

const helpBanner = `
 ____        _ _        _     _       
| __ ) _   _| | | _____| |__ (_)_ __  
|  _ \| | | | | |/ / __| '_ \| | '_ \ 
| |_) | |_| | |   <\__ \ | | | | |_) |
|____/ \__,_|_|_|\_\___/_| |_|_| .__/ 
                               |_|    
`

const helpDescription = `
Ship newline-delimited index, create, update and delete operations to an
Elasticsearch-compatible store through its _bulk API.

Highlights:
  - Batches by size and on a fixed flush interval, with bounded requests in flight.
  - Reports every failed operation; exits non-zero if any failed.
  - Follows growing files, including truncation and rotation.
  - Configure via file (TOML or YAML), BULKSHIP_* env vars, .env file, or flags.

Input lines look like:
  {"action":"index","id":"1","doc":{"msg":"hello"}}
  {"action":"update","id":"1","doc":{"seen":true},"doc_as_upsert":true}
  {"action":"delete","id":"1"}
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  bulkship --index logs --input ops.ndjson
  cat ops.ndjson | bulkship --store-url https://es.internal:9200 --api-key <key> --index logs
  bulkship --config $HOME/.bulkship/config.toml --input app.ndjson --follow
  bulkship stub --listen :9200
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	logger := agent.NewLogger("info")

	root := newShipCmd("bulkship")
	root.Long = longHelp
	root.Example = exampleUsage
	root.Version = fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH)
	root.AddCommand(newShipCmd("ship"), newStubCmd())

	if err := root.Execute(); err != nil {
		logger.Error("bulkship", log.Err(err))
		os.Exit(1)
	}
}

// newShipCmd builds the shipping command. The root command and the explicit
// "ship" subcommand are both built here.
func newShipCmd(use string) *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var (
		cfgPath  string
		envPath  string
		maxBytes string
	)

	root := &cobra.Command{
		Use:           use,
		Short:         "Ship NDJSON bulk operations to an Elasticsearch-compatible store",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}
			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// .env values land in the process environment, below real env vars.
			envFile := envPath
			if envFile == "" {
				envFile = ".env"
			}
			if err := cliconfig.LoadEnvFile(envFile, envPath != ""); err != nil {
				return err
			}
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if changed["max-batch-bytes"] {
				n, err := cliconfig.ParseSize(maxBytes)
				if err != nil {
					return fmt.Errorf("invalid max-batch-bytes: %w", err)
				}
				cfg.MaxBatchBytes = n
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := agent.NewLogger(cfg.LogLevel)

			// Log configuration (masking secrets)
			logCfg := cfg
			if logCfg.Password != "" {
				logCfg.Password = "*****"
			}
			if logCfg.APIKey != "" {
				logCfg.APIKey = "*****"
			}
			logger.Debug("configuration", log.Any("config", logCfg))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					logger.Info("received signal, draining", log.String("signal", sig.String()))
					cancel()
				case <-ctx.Done():
				}
			}()

			sum, err := agent.Run(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%d of %d operations failed", sum.Failed, sum.Succeeded+sum.Failed)
			}
			return nil
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.bulkship/config.toml)")
	root.Flags().StringVar(&envPath, "env-file", "", "path to a .env file (default: ./.env if present)")

	root.Flags().StringVar(&cfg.StoreURL, "store-url", cfg.StoreURL, "document store base URL")
	root.Flags().StringVar(&cfg.Index, "index", cfg.Index, "default index for operations that name none")
	root.Flags().StringVar(&cfg.Type, "type", cfg.Type, "default document type (requires --index)")
	root.Flags().StringVarP(&cfg.Input, "input", "i", cfg.Input, "NDJSON operations file, or - for stdin")
	root.Flags().BoolVarP(&cfg.Follow, "follow", "f", cfg.Follow, "keep reading the input file as it grows")

	root.Flags().StringVar(&maxBytes, "max-batch-bytes", humanize.IBytes(uint64(cfg.MaxBatchBytes)), "flush when a batch body reaches this size (e.g. 512KiB, 5MB)")
	root.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "flush buffered operations at this period")
	root.Flags().IntVar(&cfg.MaxInFlight, "max-in-flight", cfg.MaxInFlight, "maximum batches in flight (0 = unlimited, 1 = ordered)")
	root.Flags().IntVar(&cfg.InputCapacity, "input-capacity", cfg.InputCapacity, "operations buffered before reading blocks")

	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per attempt")
	root.Flags().IntVar(&cfg.Retries, "retries", cfg.Retries, "retries on connection errors and 429/502/503/504")
	root.Flags().Float64Var(&cfg.DispatchRate, "dispatch-rate", cfg.DispatchRate, "maximum bulk requests per second (0 = unlimited)")

	root.Flags().StringVar(&cfg.Username, "username", cfg.Username, "basic auth username")
	root.Flags().StringVar(&cfg.Password, "password", cfg.Password, "basic auth password")
	root.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "API key (sent as Authorization: ApiKey)")

	root.Flags().StringVar(&cfg.Refresh, "refresh", cfg.Refresh, "refresh policy: true, false or wait_for")
	root.Flags().StringVar(&cfg.Pipeline, "pipeline", cfg.Pipeline, "ingest pipeline applied to every operation")

	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (e.g. :9100)")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")

	return root
}

func newStubCmd() *cobra.Command {
	var (
		listen   string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "stub",
		Short:        "Run an in-memory store that answers _bulk requests, for local testing",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(gin.ReleaseMode)
			logger := agent.NewLogger(logLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return stubstore.NewServer(stubstore.NewStore(), logger).ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":9200", "listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	return cmd
}
