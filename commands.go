package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"audio-fingerprint/batch"
	"audio-fingerprint/models"
	"audio-fingerprint/output"
	"audio-fingerprint/shazam"
	"audio-fingerprint/wav"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and socket.io fingerprinting service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}

	cmd.Flags().String("proto", "http", "protocol to use (http or https)")
	cmd.Flags().StringP("port", "p", "5000", "port to listen on")
	cmd.Flags().Int("max-upload-mb", 64, "largest accepted upload in MiB")
	cmd.Flags().String("static", "static", "directory served at /")
	cmd.Flags().Float64("threshold", 0.1, "RMS above which a block is reported as transient")

	return cmd
}

func newFingerprintCmd() *cobra.Command {
	var (
		full    bool
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "fingerprint <file.wav>...",
		Short: "Extract constellation hashes from WAV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(cfg.OutputFormat)
			if err != nil {
				return err
			}

			started := time.Now()
			summaries, err := batch.Run(cmd.Context(), args, cfg.Workers,
				func(_ context.Context, engine *shazam.AudioFingerprinter, path string) (models.FingerprintSummary, error) {
					info, err := wav.ReadWavInfo(path)
					if err != nil {
						return models.FingerprintSummary{}, err
					}
					fps := engine.Fingerprint(info.Samples)
					return models.NewFingerprintSummary(path, len(info.Samples), fps, full), nil
				})
			if err != nil {
				return err
			}

			total := 0
			for _, s := range summaries {
				total += s.FingerprintCount
			}
			successColor.Fprintf(os.Stderr, "✓ fingerprinted %d file(s), %d hashes in %s\n",
				len(summaries), total, time.Since(started).Round(time.Millisecond))

			var result any = models.SummaryList(summaries)
			if len(summaries) == 1 {
				result = summaries[0]
			}
			return output.WriteFile(outFile, result, format)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include every (hash, offset) record")
	cmd.Flags().StringVar(&outFile, "out", "", "write results to this file instead of stdout")

	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file.wav>...",
		Short: "Report RMS and spectral flatness of WAV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(cfg.OutputFormat)
			if err != nil {
				return err
			}

			threshold := float32(cfg.Analysis.TransientThreshold)
			results, err := batch.Run(cmd.Context(), args, cfg.Workers,
				func(_ context.Context, engine *shazam.AudioFingerprinter, path string) (models.AnalysisResult, error) {
					info, err := wav.ReadWavInfo(path)
					if err != nil {
						return models.AnalysisResult{}, err
					}
					rms, flatness := engine.Analyze(info.Samples)
					return models.AnalysisResult{
						Source:      path,
						RMS:         rms,
						Flatness:    flatness,
						IsTransient: rms > threshold,
					}, nil
				})
			if err != nil {
				return err
			}

			infoColor.Fprintf(os.Stderr, "analyzed %d file(s)\n", len(results))

			var result any = models.AnalysisList(results)
			if len(results) == 1 {
				result = results[0]
			}
			return output.Write(os.Stdout, result, format)
		},
	}

	cmd.Flags().Float64("threshold", 0.1, "RMS above which a file is reported as transient")

	return cmd
}

func printBanner(addr string) {
	fmt.Fprintln(os.Stderr, successColor.Sprint("✓ listening on ")+infoColor.Sprint(addr))
}
