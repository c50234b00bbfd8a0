package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/readout/internal/extract"
	"github.com/MeKo-Tech/readout/internal/testutil"
)

func TestExtractCommand(t *testing.T) {
	assert.NotNil(t, extractCmd)
	assert.True(t, extractCmd.HasFlags())
	assert.NotNil(t, extractCmd.Flags().Lookup("regions"))
	assert.NotNil(t, extractCmd.Flags().Lookup("fast-threshold"))
	assert.NotNil(t, extractCmd.Flags().Lookup("backends"))
}

func TestExtractCommandHelp(t *testing.T) {
	output, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"extract", "--help"})
	require.NoError(t, err)
	assert.Contains(t, output, "region project file")
	assert.Contains(t, output, "--fps-sample")
}

func TestExtractCommandRequiresRegions(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"extract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no region project file provided")
}

func TestExtractCommandMissingRegionsFile(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"extract", "--regions", "/nonexistent/project.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read region config")
}

func TestExtractCommandInvalidFastThreshold(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"extract", "--regions", "project.json", "--fast-threshold", "1.5"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fast threshold")
}

func TestExtractCommandInvalidFPSSample(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"extract", "--regions", "project.json", "--fps-sample", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid fps sample")
}

func TestExtractCommandInvalidBackends(t *testing.T) {
	_, err := executeCommandAndCaptureOutput(t, rootCmd,
		[]string{"extract", "--regions", "project.json", "--backends", "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backends selector")
}

func TestExtractCommandNoVideoPath(t *testing.T) {
	path := testutil.WriteProjectFile(t, t.TempDir(), testutil.SampleProject(""))

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"extract", "--regions", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input video provided")
}

func TestExtractCommandMissingVideoFile(t *testing.T) {
	dir := t.TempDir()
	project := testutil.SampleProject(filepath.Join(dir, "missing.mp4"))
	path := testutil.WriteProjectFile(t, dir, project)

	_, err := executeCommandAndCaptureOutput(t, rootCmd, []string{"extract", "--regions", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "video file")
}

func TestWriteResultCSVToStdout(t *testing.T) {
	res := &extract.Result{
		Measurements: []extract.Measurement{{RegionName: "display", Value: "42.5"}},
		CSV:          "timestamp,frame_number,region_name,value,confidence,raw_text,source\n0,0,display,42.5,0.9500,42.5,stub\n",
	}

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, writeResult(cmd, res, "", outputFormatCSV))
	assert.Equal(t, res.CSV, buf.String())
}

func TestWriteResultJSONToStdout(t *testing.T) {
	res := &extract.Result{
		Measurements: []extract.Measurement{{RegionName: "display", Value: "42.5"}},
	}

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, writeResult(cmd, res, "", outputFormatJSON))
	assert.Contains(t, buf.String(), `"region_name": "display"`)
	assert.Contains(t, buf.String(), `"value": "42.5"`)
}

func TestWriteResultSummaryForFileOutput(t *testing.T) {
	res := &extract.Result{
		Measurements: []extract.Measurement{{RegionName: "display"}, {RegionName: "status"}},
	}
	res.Summary.Steps = 7

	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)

	require.NoError(t, writeResult(cmd, res, "readings.csv", outputFormatCSV))
	assert.Contains(t, buf.String(), "Wrote 2 measurements to readings.csv")
	assert.Contains(t, buf.String(), "7 frames")
}

func TestSplitCSV(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"en,de", []string{"en", "de"}},
		{" en , de ", []string{"en", "de"}},
		{"en,,de", []string{"en", "de"}},
		{"en", []string{"en"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := splitCSV(tt.input)
		if tt.want == nil {
			assert.Empty(t, got, "input %q", tt.input)
			continue
		}
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}
