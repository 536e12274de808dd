package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimFrameSuffix(t *testing.T) {
	assert.Equal(t, "/data/sample",
		trimFrameSuffix("/data/sample_000001_data_000042.h5"))
	// Non-Eiger names lose only the extension.
	assert.Equal(t, "/data/other", trimFrameSuffix("/data/other.h5"))
	assert.Equal(t, "plain", trimFrameSuffix("plain"))
}

func TestTrimFrameExt(t *testing.T) {
	assert.Equal(t, "a/b", trimFrameExt("a/b.hdf5"))
	assert.Equal(t, "a/b", trimFrameExt("a/b.tiff"))
	assert.Equal(t, "a/b.raw", trimFrameExt("a/b.raw"))
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer
	bar := progressBar(&buf)

	bar(15, 30, "run 1")
	out := buf.String()
	assert.Contains(t, out, strings.Repeat("#", 15))
	assert.Contains(t, out, " 50%")
	assert.NotContains(t, out, "\n")

	bar(30, 30, "run 1")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	// A zero total must not divide by zero.
	bar(0, 0, "empty")
}
