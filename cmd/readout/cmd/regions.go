package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/readout/internal/regions"
)

// regionsCmd represents the regions command.
var regionsCmd = &cobra.Command{
	Use:   "regions <file>",
	Short: "Validate and summarize a region project file",
	Long: `Validate a region project file and print what it describes: the video it
belongs to, its keyframe span, and the regions with their expectations.

With --at, print the interpolated region rectangles at a timestamp instead,
exactly as the extraction loop would crop them.

Examples:
  readout regions project.json
  readout regions project.json --at 12.5`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		project, err := regions.Load(args[0])
		if err != nil {
			return err
		}
		if err := project.Validate(); err != nil {
			return fmt.Errorf("invalid region project %s: %w", args[0], err)
		}

		var out string
		if cmd.Flags().Changed("at") {
			ts, _ := cmd.Flags().GetFloat64("at")
			out = formatRegionsAt(project, ts)
		} else {
			out = formatProjectSummary(args[0], project)
		}

		if _, err := fmt.Fprint(cmd.OutOrStdout(), out); err != nil {
			return fmt.Errorf("failed to write to stdout: %w", err)
		}
		return nil
	},
}

func formatRegionsAt(project *regions.Config, ts float64) string {
	rs := project.RegionsAt(ts)
	if len(rs) == 0 {
		return fmt.Sprintf("no regions at %.3fs\n", ts)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Regions at %.3fs:\n", ts)
	for _, r := range rs {
		fmt.Fprintf(&b, "  %-16s x=%-5d y=%-5d w=%-5d h=%d\n", r.Name, r.X, r.Y, r.Width, r.Height)
	}
	return b.String()
}

func formatProjectSummary(path string, project *regions.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project:   %s\n", path)
	if project.VideoPath != "" {
		fmt.Fprintf(&b, "Video:     %s\n", project.VideoPath)
	}

	first := project.Keyframes[0].Timestamp
	last := project.Keyframes[len(project.Keyframes)-1].Timestamp
	fmt.Fprintf(&b, "Keyframes: %d (%.3fs - %.3fs)\n", len(project.Keyframes), first, last)

	names := regionNames(project)
	fmt.Fprintf(&b, "Regions:   %s\n", strings.Join(names, ", "))
	for _, name := range names {
		if exp := project.ExpectationFor(name); exp != nil {
			fmt.Fprintf(&b, "  %-16s %s\n", name, describeExpectation(*exp))
		}
	}
	return b.String()
}

// regionNames collects the distinct region names across all keyframes in
// first-appearance order.
func regionNames(project *regions.Config) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, kf := range project.Keyframes {
		for _, r := range kf.Regions {
			if _, ok := seen[r.Name]; !ok {
				seen[r.Name] = struct{}{}
				names = append(names, r.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func describeExpectation(exp regions.Expectation) string {
	if !exp.Numeric {
		return "text"
	}
	parts := []string{"numeric"}
	if exp.Min != nil || exp.Max != nil {
		lo, hi := "-inf", "+inf"
		if exp.Min != nil {
			lo = strconv.FormatFloat(*exp.Min, 'f', -1, 64)
		}
		if exp.Max != nil {
			hi = strconv.FormatFloat(*exp.Max, 'f', -1, 64)
		}
		parts = append(parts, fmt.Sprintf("range %s..%s", lo, hi))
	}
	if exp.DecimalPlaces != nil {
		parts = append(parts, fmt.Sprintf("decimals %d", *exp.DecimalPlaces))
	}
	if exp.TotalDigits != nil {
		parts = append(parts, fmt.Sprintf("digits %d", *exp.TotalDigits))
	}
	if exp.MaxDeviation != nil {
		parts = append(parts, fmt.Sprintf("max deviation %s", strconv.FormatFloat(*exp.MaxDeviation, 'f', -1, 64)))
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(regionsCmd)
	regionsCmd.Flags().Float64("at", 0, "print the interpolated regions at this timestamp (seconds)")
}
