package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/fusion"
	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/video"
)

const (
	outputFormatCSV  = "csv"
	outputFormatJSON = "json"
)

// extractCmd represents the extract command.
var extractCmd = &cobra.Command{
	Use:   "extract [video]",
	Short: "Extract numeric readings from an instrument video",
	Long: `Extract numeric readings from the display regions of an instrument video.

The region project file (--regions) marks rectangular regions on at least two
keyframes; regions are interpolated linearly between them. Every sampled frame
is decoded, each region crop runs through the OCR backends, and the fused
reading is recorded. Measurements stream to a CSV file or stdout.

The video path may be given as an argument or taken from the project file.

Examples:
  readout extract recording.mp4 --regions project.json
  readout extract --regions project.json --output readings.csv
  readout extract recording.mp4 -r project.json --fps-sample 5 --backends tesseract`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		regionsPath, _ := cmd.Flags().GetString("regions")
		if regionsPath == "" {
			return errors.New("no region project file provided (--regions)")
		}

		// Extract values from configuration with CLI flag overrides
		fpsSample := cfg.Video.FPSSample
		if cmd.Flags().Changed("fps-sample") {
			fpsSample, _ = cmd.Flags().GetInt("fps-sample")
		}

		fastThreshold := cfg.Fusion.FastThreshold
		if cmd.Flags().Changed("fast-threshold") {
			fastThreshold, _ = cmd.Flags().GetFloat64("fast-threshold")
		}

		workers := cfg.Fusion.Workers
		if cmd.Flags().Changed("workers") {
			workers, _ = cmd.Flags().GetInt("workers")
		}

		outputPath := cfg.Output.File
		if cmd.Flags().Changed("output") {
			outputPath, _ = cmd.Flags().GetString("output")
		}

		if cmd.Flags().Changed("languages") {
			langCSV, _ := cmd.Flags().GetString("languages")
			cfg.Tesseract.Languages = splitCSV(langCSV)
		}

		backends, _ := cmd.Flags().GetString("backends")
		noProgress, _ := cmd.Flags().GetBool("no-progress")

		if fastThreshold <= 0 || fastThreshold > 1 {
			return fmt.Errorf("invalid fast threshold: %.2f (must be between 0.0 and 1.0)", fastThreshold)
		}
		if fpsSample < 1 {
			return fmt.Errorf("invalid fps sample: %d (must be at least 1)", fpsSample)
		}
		if workers < 0 {
			return fmt.Errorf("invalid workers: %d (must not be negative)", workers)
		}
		if err := validateBackends(backends); err != nil {
			return err
		}
		format := cfg.Output.Format
		if format != "" && format != outputFormatCSV && format != outputFormatJSON {
			return fmt.Errorf("invalid output format: %s (must be one of: %s, %s)",
				format, outputFormatCSV, outputFormatJSON)
		}

		project, err := regions.Load(regionsPath)
		if err != nil {
			return err
		}
		if err := project.Validate(); err != nil {
			return fmt.Errorf("invalid region project %s: %w", regionsPath, err)
		}

		videoPath := project.VideoPath
		if len(args) > 0 {
			videoPath = args[0]
		}
		if videoPath == "" {
			return errors.New("no input video provided (argument or project video_path)")
		}

		engine, neural, err := buildEngine(cfg, backends, fastThreshold)
		if err != nil {
			return err
		}
		if neural != nil {
			defer func() { _ = neural.Close() }()
		}

		source, err := video.NewFFmpegSource(videoPath)
		if err != nil {
			return fmt.Errorf("open video: %w", err)
		}

		var sink extract.EventSink
		if noProgress {
			sink = extract.NewLogSink(slog.Default(), slog.LevelInfo)
		} else {
			sink = extract.NewConsoleSink(cmd.ErrOrStderr(), "extract: ")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ex := extract.New(source, engine, sink)
		res, err := ex.Run(ctx, extract.Params{
			Config:     *project,
			FPSSample:  fpsSample,
			Workers:    workers,
			OutputPath: outputPath,
		})
		if err != nil {
			return err
		}

		return writeResult(cmd, res, outputPath, format)
	},
}

// writeResult prints measurements to stdout unless they already went to a
// file, in which case a one-line summary is enough.
func writeResult(cmd *cobra.Command, res *extract.Result, outputPath, format string) error {
	if outputPath != "" {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d measurements to %s (%d frames)\n",
			len(res.Measurements), outputPath, res.Summary.Steps)
		if err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	}

	switch format {
	case outputFormatJSON:
		data, err := json.MarshalIndent(res.Measurements, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal measurements: %w", err)
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	default:
		if _, err := fmt.Fprint(cmd.OutOrStdout(), res.CSV); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("regions", "r", "", "region project file (JSON) with keyframes and expectations")
	extractCmd.Flags().StringP("output", "o", "", "write the measurement CSV to this file instead of stdout")
	extractCmd.Flags().Int("fps-sample", 1, "process every Nth frame")
	extractCmd.Flags().Float64("fast-threshold", fusion.DefaultFastThreshold,
		"effective confidence at which a priority candidate skips the fallback tier (0..1)")
	extractCmd.Flags().String("languages", "en", "comma-separated OCR languages (e.g., en,de)")
	extractCmd.Flags().String("backends", backendsAll, "backend tiers to run: all, neural, or tesseract")
	extractCmd.Flags().Int("workers", 0, "parallel region reads per frame (0 = one per region)")
	extractCmd.Flags().Bool("no-progress", false, "log progress instead of drawing a progress bar")
}
