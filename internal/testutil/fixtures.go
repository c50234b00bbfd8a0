package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/regions"
)

// SampleProject builds a two-keyframe project document with a numeric
// display region and a free-text status region, the smallest document that
// exercises interpolation, expectations and multi-region frames.
func SampleProject(videoPath string) *regions.Config {
	display := regions.Region{Name: "display", X: 20, Y: 10, Width: 100, Height: 30}
	status := regions.Region{Name: "status", X: 20, Y: 44, Width: 60, Height: 14}

	return &regions.Config{
		VideoPath: videoPath,
		Keyframes: []regions.Keyframe{
			{Timestamp: 0, Regions: []regions.Region{display, status}},
			{Timestamp: 2, Regions: []regions.Region{display, status}},
		},
		Expectations: map[string]regions.Expectation{
			"display": {
				Numeric:       true,
				Min:           Float64Ptr(0),
				Max:           Float64Ptr(100),
				DecimalPlaces: IntPtr(1),
			},
		},
	}
}

// WriteProjectFile saves a project document under dir and returns its path.
func WriteProjectFile(t *testing.T, dir string, cfg *regions.Config) string {
	t.Helper()

	path := filepath.Join(dir, "project.json")
	require.NoError(t, regions.Save(cfg, path))
	return path
}
