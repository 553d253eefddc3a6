// Package cmd implements the bridged CLI: a cobra root command plus a
// serve subcommand that boots the DTC bridge server.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/coinbase-dtc/bridge/platform"
)

const (
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
	flagLogDir    = "log-dir"

	logLevelJSON = "json"
	logLevelText = "text"

	defaultLogLevel  = "info"
	defaultLogFormat = logLevelText

	logFilePrefix     = "bridged"
	logFileMaxBytes   = 50 * 1024 * 1024
	logFileMaxBackups = 5
)

// NewRootCmd builds the bridged root command with the serve subcommand
// attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bridged",
		Short: "coinbase-dtc-bridge: a DTC v8 market data server fed by Coinbase and Binance",
	}

	rootCmd.PersistentFlags().String(flagLogLevel, defaultLogLevel, "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, defaultLogFormat, "logging format (text|json)")
	rootCmd.PersistentFlags().String(flagLogDir, "", "directory to also write rotating log files to, in addition to stderr")

	rootCmd.AddCommand(getServeCmd())
	return rootCmd
}

// newLogger builds the process logger from the persistent log flags. When
// flagLogDir is set, log lines go to stderr and to a size-rotated file
// under that directory; otherwise stderr is the only sink.
func newLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}
	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var stderrWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		stderrWriter = os.Stderr
	case logLevelText:
		stderrWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	default:
		return zerolog.Logger{}, fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	logDir, err := cmd.Flags().GetString(flagLogDir)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logWriter := stderrWriter
	if logDir != "" {
		rw, err := platform.NewRotatingWriter(logDir, logFilePrefix, logFileMaxBytes, logFileMaxBackups, true)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("failed to open log directory: %w", err)
		}
		logWriter = io.MultiWriter(stderrWriter, rw)
	}

	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

// trapSignal cancels ctx on SIGINT/SIGTERM.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("caught signal, shutting down")
		cancel()
	}()
}
