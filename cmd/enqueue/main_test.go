package main

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildUploadMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meter.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644))

	msg, err := buildUploadMessage(path, "123", "gas", "2024-08-27T10:57:55Z")
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0}), msg.Image)
	require.Equal(t, "2024-08-27T10:57:55Z", msg.MeasureDatetime)

	msg, err = buildUploadMessage(path, "123", "gas", "")
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, msg.MeasureDatetime)
	require.NoError(t, err)
}

func TestBuildUploadMessage_Errors(t *testing.T) {
	_, err := buildUploadMessage(filepath.Join(t.TempDir(), "missing.jpg"), "123", "gas", "")
	require.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.jpg")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = buildUploadMessage(empty, "123", "gas", "")
	require.Error(t, err)
}
