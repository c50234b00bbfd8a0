package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/regions"
)

func TestSampleProjectIsValid(t *testing.T) {
	cfg := SampleProject("meter.mp4")
	cfg.Normalize()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "meter.mp4", cfg.VideoPath)
	assert.Len(t, cfg.Keyframes, 2)

	exp := cfg.ExpectationFor("display")
	require.NotNil(t, exp)
	assert.True(t, exp.Numeric)
	require.NotNil(t, exp.Max)
	assert.InDelta(t, 100, *exp.Max, 0)

	assert.Nil(t, cfg.ExpectationFor("status"))
}

func TestWriteProjectFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := WriteProjectFile(t, dir, SampleProject("meter.mp4"))

	loaded, err := regions.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "meter.mp4", loaded.VideoPath)
	assert.Len(t, loaded.RegionsAt(1.0), 2)
}
