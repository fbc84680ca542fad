// Package observability holds the process-wide CLI logger.
package observability

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by command handlers. It is a no-op logger
// until InitCLILogger runs, so packages can log unconditionally.
var CLILogger = zap.NewNop()

// InitCLILogger configures CLILogger for terminal use: console encoding on
// stderr, warnings and above by default, everything when verbose.
func InitCLILogger(appName string, verbose bool) {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	CLILogger = zap.New(core).Named(appName)
}
