package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dict.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCharset(t *testing.T) {
	cs, err := LoadCharset(writeDict(t, "0\n1\n2\n.\n-\n"))
	require.NoError(t, err)

	assert.Equal(t, 5, cs.Size())
	assert.Equal(t, "0", cs.LookupToken(0))
	assert.Equal(t, "-", cs.LookupToken(4))
	assert.Equal(t, 3, cs.LookupIndex("."))
}

func TestLoadCharsetStripsBOM(t *testing.T) {
	cs, err := LoadCharset(writeDict(t, "﻿a\nb\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cs.Size())
	assert.Equal(t, "a", cs.LookupToken(0))
	assert.Equal(t, 0, cs.LookupIndex("a"))
}

func TestLoadCharsetSkipsEmptyAndDuplicateLines(t *testing.T) {
	cs, err := LoadCharset(writeDict(t, "x\n\ny\n\nx\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cs.Size())
	assert.Equal(t, "y", cs.LookupToken(1))
}

func TestLoadCharsetErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCharset(filepath.Join(t.TempDir(), "nope.txt"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := LoadCharset(writeDict(t, "\n\n"))
		assert.ErrorContains(t, err, "dictionary is empty")
	})
}

func TestCharsetLookupOutOfRange(t *testing.T) {
	cs, err := LoadCharset(writeDict(t, "q\n"))
	require.NoError(t, err)

	assert.Empty(t, cs.LookupToken(-1))
	assert.Empty(t, cs.LookupToken(1))
	assert.Equal(t, -1, cs.LookupIndex("missing"))
}
