package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"go-passport-recognizer/mrz"
	"go-passport-recognizer/ocrv2"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestExtractCommand(t *testing.T) {
	out, err := runCommand(t, `{"document_number":"ab123","date_of_birth":"1990-01-01","date_of_expiry":"300101"}`, "extract")
	require.NoError(t, err)

	var keys mrz.Keys
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	require.Equal(t, mrz.Keys{DocumentNumber: "AB123", DateOfBirth: "900101", DateOfExpiry: "300101"}, keys)

	_, err = runCommand(t, "nothing useful", "extract", "-")
	require.ErrorIs(t, err, errKeysNotFound)
}

func TestV2Command(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fields":{"surname":{"value":"Ivanov","confidence":0.7}}}`), 0o600))

	out, err := runCommand(t, "", "v2", "--request-id", "req-cli", path)
	require.NoError(t, err)

	var resp ocrv2.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "req-cli", resp.RequestID)
	require.Equal(t, ocrv2.StatusOk, resp.Status)
}

func TestFaceCommandKeepsJPEG(t *testing.T) {
	dir := t.TempDir()
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0xFF, 0xD9}
	in := filepath.Join(dir, "face.jpg")
	outPath := filepath.Join(dir, "out.jpg")
	require.NoError(t, os.WriteFile(in, jpeg, 0o600))

	out, err := runCommand(t, "", "face", in, outPath)
	require.NoError(t, err)
	require.Contains(t, out, "wrote")

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.Equal(t, jpeg, written)
}

func TestFaceCommandRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "face.bin")
	require.NoError(t, os.WriteFile(in, []byte("not an image"), 0o600))

	_, err := runCommand(t, "", "face", in, filepath.Join(dir, "out.jpg"))
	require.Error(t, err)
}
