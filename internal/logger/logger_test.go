package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetVerbose(t *testing.T) {
	defer SetVerbose(false)

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_OnlyWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	SetVerbose(false)
	Debug("hidden %d", 1)
	assert.Empty(t, buf.String())

	SetVerbose(true)
	Debug("shown %d", 2)
	assert.Contains(t, buf.String(), "[DEBUG] shown 2")
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetVerbose(false)

	SetVerbose(true)
	Section("Ingestion")
	assert.Contains(t, buf.String(), "=== Ingestion ===")
}

func TestError_AlwaysPrinted(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Error("boom: %s", "disk")
	assert.Contains(t, buf.String(), "[ERROR] boom: disk")
}
