package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/readout/internal/video"
)

const (
	outputFormatText = "text"
	outputFormatYAML = "yaml"
)

// probeCmd represents the probe command.
var probeCmd = &cobra.Command{
	Use:   "probe <video>",
	Short: "Print stream metadata for a video",
	Long: `Probe a video file and print its stream metadata: dimensions, frame
rate, frame count, and duration. The same probe drives frame sampling during
extraction, so this is the quickest way to check what extract will see.

Examples:
  readout probe recording.mp4
  readout probe recording.mp4 --format json`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case outputFormatText, outputFormatJSON, outputFormatYAML:
		default:
			return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", format)
		}

		source, err := video.NewFFmpegSource(args[0])
		if err != nil {
			return fmt.Errorf("open video: %w", err)
		}
		info, err := source.Info(cmd.Context())
		if err != nil {
			return err
		}

		var out string
		switch format {
		case outputFormatJSON:
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal video info: %w", err)
			}
			out = string(data) + "\n"
		case outputFormatYAML:
			data, err := yaml.Marshal(info)
			if err != nil {
				return fmt.Errorf("marshal video info: %w", err)
			}
			out = string(data)
		default:
			out = fmt.Sprintf("Video:    %s\nSize:     %dx%d\nFPS:      %.3f\nFrames:   %d\nDuration: %.3fs\n",
				args[0], info.Width, info.Height, info.FPS, info.TotalFrames, info.Duration)
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")
}
