package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-extension-exporter/internal/browsers"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := NewDB(filepath.Join(t.TempDir(), "cache.db"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func sample() []browsers.Extension {
	return []browsers.Extension{
		{
			ID: "zzz", Name: "Zulu", Description: "last by id", Version: "3.0", Enabled: true,
			InstallType: browsers.InstallNormal, Type: browsers.TypeExtension,
			Icons:       []browsers.Icon{{Size: 16, URL: "file:///a/16.png"}, {Size: 128, URL: "file:///a/128.png"}},
			Permissions: []string{"tabs"}, HostPermissions: []string{"<all_urls>"},
			Browser: "chrome", Profile: "Default",
		},
		{
			ID: "aaa", Name: "Alpha", Version: "1.0", Enabled: false,
			InstallType: browsers.InstallDevelopment, Type: browsers.TypeExtension,
			Browser: "chrome", Profile: "Default",
		},
	}
}

func TestRoundTripKeepsOrder(t *testing.T) {
	d := openTestDB(t)

	require.NoError(t, d.UpdateExtensions(browsers.Chrome, sample()))

	got, err := d.GetExtensions(browsers.Chrome)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "zzz", got[0].ID)
	assert.Equal(t, sample()[0], got[0])
	assert.Equal(t, "aaa", got[1].ID)
	assert.False(t, got[1].Enabled)
	assert.Equal(t, browsers.InstallDevelopment, got[1].InstallType)
	assert.Empty(t, got[1].Icons)
}

func TestEmptyAndStale(t *testing.T) {
	d := openTestDB(t)

	got, err := d.GetExtensions(browsers.Edge)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, d.UpdateExtensions(browsers.Edge, sample()))
	d.now = func() time.Time { return time.Now().Add(DefaultTTL + time.Minute) }

	got, err = d.GetExtensions(browsers.Edge)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateReplaces(t *testing.T) {
	d := openTestDB(t)
	require.NoError(t, d.UpdateExtensions(browsers.Brave, sample()))
	require.NoError(t, d.UpdateExtensions(browsers.Brave, sample()[:1]))

	got, err := d.GetExtensions(browsers.Brave)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUnknownBrowser(t *testing.T) {
	d := openTestDB(t)
	_, err := d.GetExtensions("opera")
	assert.Error(t, err)
	assert.Error(t, d.UpdateExtensions("opera", nil))
}

type countingSource struct {
	calls int
	exts  []browsers.Extension
	err   error
}

func (c *countingSource) ListExtensions(ctx context.Context) ([]browsers.Extension, error) {
	c.calls++
	return c.exts, c.err
}

func TestCachedSource(t *testing.T) {
	d := openTestDB(t)
	src := &countingSource{exts: sample()}
	cached := &CachedSource{DB: d, Browser: browsers.Chrome, Source: src}

	first, err := cached.ListExtensions(context.Background())
	require.NoError(t, err)
	second, err := cached.ListExtensions(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)

	cached.Refresh = true
	_, err = cached.ListExtensions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestCachedSourcePropagatesHostError(t *testing.T) {
	d := openTestDB(t)
	hostErr := &browsers.HostError{Op: "list extensions", Err: errors.New("permission denied")}
	cached := &CachedSource{DB: d, Browser: browsers.Chrome, Source: &countingSource{err: hostErr}}

	_, err := cached.ListExtensions(context.Background())
	assert.ErrorIs(t, err, hostErr)
}
