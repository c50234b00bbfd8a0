package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModelsDir(t *testing.T) {
	tests := []struct {
		name           string
		explicitDir    string
		envVar         string
		expectedResult string
	}{
		{
			name:           "explicit directory takes precedence",
			explicitDir:    "/explicit/path",
			envVar:         "/env/path",
			expectedResult: "/explicit/path",
		},
		{
			name:           "environment variable used when no explicit dir",
			explicitDir:    "",
			envVar:         "/env/path",
			expectedResult: "/env/path",
		},
		{
			name:           "default used when neither provided",
			explicitDir:    "",
			envVar:         "",
			expectedResult: "", // computed below
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envVar != "" {
				t.Setenv(EnvModelsDir, tt.envVar)
			} else {
				require.NoError(t, os.Unsetenv(EnvModelsDir))
			}

			result := GetModelsDir(tt.explicitDir)

			expectedResult := tt.expectedResult
			if expectedResult == "" {
				base := DefaultModelsDir
				if projectRoot, err := findProjectRoot(); err == nil {
					base = filepath.Join(projectRoot, DefaultModelsDir)
				}
				expectedResult = base
			}

			assert.Equal(t, expectedResult, result)
		})
	}
}

func TestResolveModelPathPrefersOrganizedStructure(t *testing.T) {
	dir := t.TempDir()
	organized := filepath.Join(dir, TypeRecognition)
	require.NoError(t, os.MkdirAll(organized, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(organized, RecognitionMobile), []byte("x"), 0o600))

	got := ResolveModelPath(dir, TypeRecognition, RecognitionMobile)
	assert.Equal(t, filepath.Join(organized, RecognitionMobile), got)
}

func TestResolveModelPathFallsBackToFlat(t *testing.T) {
	dir := t.TempDir()

	got := ResolveModelPath(dir, TypeRecognition, RecognitionMobile)
	assert.Equal(t, filepath.Join(dir, RecognitionMobile), got)
}

func TestGetRecognitionModelPath(t *testing.T) {
	got := GetRecognitionModelPath("/custom")
	assert.Equal(t, filepath.Join("/custom", RecognitionMobile), got)
}

func TestGetDictionaryPath(t *testing.T) {
	got := GetDictionaryPath("/custom")
	assert.Equal(t, filepath.Join("/custom", DictionaryPPOCRv5), got)
}

func TestValidateModelExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, RecognitionMobile)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	assert.NoError(t, ValidateModelExists(path))
	assert.Error(t, ValidateModelExists(filepath.Join(dir, "missing.onnx")))
}

func TestLocate(t *testing.T) {
	t.Run("both files present", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, RecognitionMobile), []byte("x"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, DictionaryPPOCRv5), []byte("0\n1\n"), 0o600))

		set, ok := Locate(dir)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, RecognitionMobile), set.RecognitionModel)
		assert.Equal(t, filepath.Join(dir, DictionaryPPOCRv5), set.Dictionary)
	})

	t.Run("missing dictionary disables the set", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, RecognitionMobile), []byte("x"), 0o600))

		_, ok := Locate(dir)
		assert.False(t, ok)
	})

	t.Run("missing model disables the set", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, DictionaryPPOCRv5), []byte("0\n"), 0o600))

		_, ok := Locate(dir)
		assert.False(t, ok)
	})
}
