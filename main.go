package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"audio-fingerprint/config"
	"audio-fingerprint/utils"
)

var (
	configFile string
	v          *viper.Viper
	cfg        *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "audio-fingerprint",
	Short: "Constellation fingerprinting for 44.1 kHz audio",
	Long: `Extracts constellation hashes and block features from PCM audio.

Commands:
- serve        run the HTTP and socket.io service
- fingerprint  hash one or more WAV files
- analyze      report RMS and spectral flatness of WAV files`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format (table, json, yaml, msgpack)")
	rootCmd.PersistentFlags().IntP("workers", "w", 4, "number of files processed concurrently")

	rootCmd.AddCommand(newServeCmd(), newFingerprintCmd(), newAnalyzeCmd())
}

// initializeConfig loads configuration once flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	var err error
	v, err = config.New(configFile)
	if err != nil {
		return err
	}

	if err := bindFlags(cmd, v); err != nil {
		return err
	}

	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	utils.SetLogLevel(cfg.LogLevel)
	return nil
}

// flagKeys maps flag names to their configuration keys
var flagKeys = map[string]string{
	"log-level":     "log_level",
	"output":        "output_format",
	"workers":       "workers",
	"proto":         "server.protocol",
	"port":          "server.port",
	"max-upload-mb": "server.max_upload_mb",
	"static":        "server.static_dir",
	"threshold":     "analysis.transient_threshold",
}

// bindFlags binds each known cobra flag to its viper key
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := utils.GetLogger()
		ctx := context.Background()
		logger.ErrorContext(ctx, "command failed", slog.Any("error", xerrors.New(err)))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
