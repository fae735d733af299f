package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		assetsJSON, assetsCheck = false, false
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAssetsCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "menus"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "menus", "Main.yaml"), []byte("title: Main Menu\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dialog.json"), []byte(`{"title":"Confirm"}`), 0o644))

	out, err := runCLI(t, "assets", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "menus/Main")
	assert.Contains(t, out, "Dialog")

	out, err = runCLI(t, "assets", dir, "--json", "--check")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Main Menu"`)
	assert.Contains(t, out, `"title": "Confirm"`)
}

func TestAssetsCommandReportsBrokenDocuments(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Broken.json"), []byte(`{"title":`), 0o644))

	out, err := runCLI(t, "assets", dir, "--check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 assets failed to load")
	assert.Contains(t, out, "Broken")
}
