package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/locale"
)

func writeDump(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extensions.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSetupRejectsUnknownBrowser(t *testing.T) {
	_, err := setup(context.Background(), commonFlags{browser: "opera", input: writeDump(t, `[]`)}, false)
	assert.Error(t, err)
}

func TestSetupEmptyMessages(t *testing.T) {
	en := locale.English()

	s, err := setup(context.Background(), commonFlags{input: writeDump(t, `[]`)}, false)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, en.NoExtensions, s.emptyMessage())

	filtered, err := setup(context.Background(), commonFlags{input: writeDump(t, `[{"id":"t","name":"Theme","type":"theme"}]`)}, false)
	require.NoError(t, err)
	defer filtered.Close()
	assert.Empty(t, filtered.ctrl.Records())
	assert.Equal(t, en.NoneAfterFilter, filtered.emptyMessage())
}

func TestSetupAppliesFlags(t *testing.T) {
	s, err := setup(context.Background(), commonFlags{browser: "edge", input: writeDump(t, `[{"id":"a","name":"A","enabled":true}]`)}, true)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, string(browsers.Edge), s.cfg.Export.Browser)
	assert.True(t, s.cfg.Export.AllowUninstall)
	assert.Len(t, s.ctrl.Records(), 1)
}
