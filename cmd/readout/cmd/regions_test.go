package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/regions"
	"github.com/MeKo-Tech/readout/internal/testutil"
)

func TestRegionsCommandSummary(t *testing.T) {
	path := testutil.WriteProjectFile(t, t.TempDir(), testutil.SampleProject("clip.mp4"))

	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"regions", path})
	require.NoError(t, err)

	assert.Contains(t, output, "Video:     clip.mp4")
	assert.Contains(t, output, "Keyframes: 2 (0.000s - 2.000s)")
	assert.Contains(t, output, "display, status")
	assert.Contains(t, output, "numeric, range 0..100, decimals 1")
}

func TestRegionsCommandAtTimestamp(t *testing.T) {
	path := testutil.WriteProjectFile(t, t.TempDir(), testutil.SampleProject("clip.mp4"))

	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"regions", path, "--at", "1.0"})
	require.NoError(t, err)

	assert.Contains(t, output, "Regions at 1.000s:")
	assert.Contains(t, output, "display")
	assert.Contains(t, output, "x=20")
	assert.Contains(t, output, "status")
}

func TestRegionsCommandMissingFile(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"regions", "/nonexistent/project.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read region config")
}

func TestRegionsCommandInvalidProject(t *testing.T) {
	// Duplicate region names within a keyframe fail validation.
	cfg := &regions.Config{
		Keyframes: []regions.Keyframe{{
			Timestamp: 0,
			Regions: []regions.Region{
				{Name: "display", X: 0, Y: 0, Width: 10, Height: 10},
				{Name: "display", X: 20, Y: 0, Width: 10, Height: 10},
			},
		}},
	}
	path := testutil.WriteProjectFile(t, t.TempDir(), cfg)

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"regions", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid region project")
}

func TestRegionsCommandMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"regions", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse region config")
}

func TestDescribeExpectation(t *testing.T) {
	assert.Equal(t, "text", describeExpectation(regions.Expectation{}))
	assert.Equal(t, "numeric", describeExpectation(regions.Expectation{Numeric: true}))

	full := regions.Expectation{
		Numeric:       true,
		Min:           testutil.Float64Ptr(0),
		Max:           testutil.Float64Ptr(250.5),
		DecimalPlaces: testutil.IntPtr(1),
		TotalDigits:   testutil.IntPtr(4),
		MaxDeviation:  testutil.Float64Ptr(10),
	}
	assert.Equal(t, "numeric, range 0..250.5, decimals 1, digits 4, max deviation 10", describeExpectation(full))

	minOnly := regions.Expectation{Numeric: true, Min: testutil.Float64Ptr(-5)}
	assert.Equal(t, "numeric, range -5..+inf", describeExpectation(minOnly))
}
