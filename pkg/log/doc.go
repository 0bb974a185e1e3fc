// Package log provides the logging abstraction used by bulkship components.
//
// The pipeline never talks to a logging library directly. It logs through the
// Logger interface defined here, which keeps the batching core free of
// infrastructure concerns and lets tests capture or discard output.
//
// # Usage
//
// Use the zerolog adapter:
//
//	logger := log.NewZerologAdapter(os.Stderr, zerolog.InfoLevel)
//
// Or wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// Or discard everything:
//
//	logger := log.NewNoopLogger()
//
// # Custom Loggers
//
// Any type with Debug, Info, Warn and Error methods taking a message and a
// list of Fields satisfies Logger.
package log
