package browsers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newChromeFixture builds a Linux Chrome user data directory with one store extension,
// one disabled store extension, one unpacked extension and one component extension.
func newChromeFixture(t *testing.T) (home string, unpackedDir string) {
	t.Helper()
	home = t.TempDir()
	userData := filepath.Join(home, ".config", "google-chrome")
	profile := filepath.Join(userData, "Default")
	unpackedDir = filepath.Join(t.TempDir(), "my-unpacked")

	writeFile(t, filepath.Join(userData, "Local State"),
		`{"profile":{"info_cache":{"Default":{"name":"Work"}}}}`)

	writeFile(t, filepath.Join(profile, "Extensions", "aaaa", "1.0_0", "manifest.json"), `{
		"name": "__MSG_appName__",
		"description": "__MSG_appDesc__",
		"version": "1.0",
		"default_locale": "en",
		"icons": {"128": "icon128.png", "16": "icon16.png"},
		"permissions": ["storage", "https://*.example.com/*", {"fileSystem": ["write"]}],
		"host_permissions": ["<all_urls>"]
	}`)
	writeFile(t, filepath.Join(profile, "Extensions", "aaaa", "1.0_0", "_locales", "en", "messages.json"),
		`{"APPNAME":{"message":"Alpha"},"appDesc":{"message":"Alpha does things"}}`)

	writeFile(t, filepath.Join(profile, "Extensions", "bbbb", "2.1_0", "manifest.json"),
		`{"name":"Bravo","version":"2.1"}`)

	writeFile(t, filepath.Join(unpackedDir, "manifest.json"),
		`{"name":"Dev Tool","version":"0.0.1","description":"local build"}`)

	writeFile(t, filepath.Join(profile, "Secure Preferences"), `{"extensions":{"settings":{
		"aaaa": {"location": 1, "path": "aaaa/1.0_0", "state": 1},
		"bbbb": {"location": 1, "path": "bbbb/2.1_0", "disable_reasons": [1]},
		"cccc": {"location": 4, "path": "`+filepath.ToSlash(unpackedDir)+`", "disable_reasons": 0},
		"dddd": {"location": 5, "path": "dddd/1.0", "manifest": {"name":"Component","version":"1"}}
	}}}`)
	return home, unpackedDir
}

func TestProfileSourceListsExtensions(t *testing.T) {
	home, _ := newChromeFixture(t)
	src := NewProfileSource([]Browser{Chrome}, nil).WithHome(home, "linux")

	exts, err := src.ListExtensions(context.Background())
	require.NoError(t, err)
	require.Len(t, exts, 3)

	byID := make(map[string]Extension)
	for _, e := range exts {
		byID[e.ID] = e
	}
	assert.NotContains(t, byID, "dddd")

	alpha := byID["aaaa"]
	assert.Equal(t, "Alpha", alpha.Name)
	assert.Equal(t, "Alpha does things", alpha.Description)
	assert.Equal(t, InstallNormal, alpha.InstallType)
	assert.Equal(t, TypeExtension, alpha.Type)
	assert.True(t, alpha.Enabled)
	assert.Equal(t, "chrome", alpha.Browser)
	assert.Equal(t, "Work", alpha.Profile)
	assert.Equal(t, []string{"storage"}, alpha.Permissions)
	assert.Equal(t, []string{"https://*.example.com/*", "<all_urls>"}, alpha.HostPermissions)
	require.Len(t, alpha.Icons, 2)
	assert.Equal(t, 16, alpha.Icons[0].Size)
	assert.Equal(t, 128, alpha.Icons[1].Size)
	assert.True(t, strings.HasPrefix(alpha.IconURL(), "file:///"))
	assert.True(t, strings.HasSuffix(alpha.IconURL(), "icon128.png"))

	bravo := byID["bbbb"]
	assert.False(t, bravo.Enabled)
	assert.Equal(t, InstallNormal, bravo.InstallType)

	dev := byID["cccc"]
	assert.Equal(t, InstallDevelopment, dev.InstallType)
	assert.True(t, dev.IsLocal())
	assert.True(t, dev.Enabled)
	assert.Equal(t, "Dev Tool", dev.Name)
}

func TestProfileSourceMissingBrowser(t *testing.T) {
	src := NewProfileSource([]Browser{Edge}, nil).WithHome(t.TempDir(), "linux")

	_, err := src.ListExtensions(context.Background())
	require.Error(t, err)

	var hostErr *HostError
	assert.True(t, errors.As(err, &hostErr))
}

func TestUserDataDir(t *testing.T) {
	src := NewProfileSource(nil, nil).WithHome("/home/u", "darwin")

	dir, err := src.UserDataDir(Brave)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/u", "Library", "Application Support", "BraveSoftware", "Brave-Browser"), dir)

	_, err = NewProfileSource(nil, nil).WithHome("/home/u", "plan9").UserDataDir(Chrome)
	assert.Error(t, err)
}

func TestParseBrowser(t *testing.T) {
	b, err := ParseBrowser(" Edge ")
	require.NoError(t, err)
	assert.Equal(t, Edge, b)

	cfg, ok := b.Config()
	require.True(t, ok)
	assert.Equal(t, `Microsoft\Edge`, cfg.RegistryKey)
	assert.Equal(t, "com.microsoft.Edge", cfg.BundleID)

	_, err = ParseBrowser("firefox")
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extensions.json")
	writeFile(t, path, `[
		{"id":"abc","name":"A","version":"1","enabled":true,"installType":"normal","type":"extension",
		 "icons":[{"size":16,"url":"https://example.com/16.png"},{"size":128,"url":"https://example.com/128.png"}]},
		{"id":"def","name":"D","version":"2","enabled":false}
	]`)

	exts, err := FileSource{Path: path}.ListExtensions(context.Background())
	require.NoError(t, err)
	require.Len(t, exts, 2)
	assert.Equal(t, "https://example.com/128.png", exts[0].IconURL())
	assert.Equal(t, TypeExtension, exts[1].Type)
	assert.Equal(t, InstallOther, exts[1].InstallType)
	assert.Equal(t, "", exts[1].IconURL())
}

func TestFileSourceErrors(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.json")}.ListExtensions(context.Background())
	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, "read extension list", hostErr.Op)

	bad := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, bad, `{not json`)
	_, err = FileSource{Path: bad}.ListExtensions(context.Background())
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, "parse extension list", hostErr.Op)
}

type fakeSource struct {
	exts []Extension
	err  error
}

func (f fakeSource) ListExtensions(ctx context.Context) ([]Extension, error) {
	return f.exts, f.err
}

func TestMultiSource(t *testing.T) {
	ok := fakeSource{exts: []Extension{{ID: "a"}, {ID: "b"}}}
	failing := fakeSource{err: errors.New("no profile")}

	exts, err := MultiSource{failing, ok}.ListExtensions(context.Background())
	require.NoError(t, err)
	assert.Len(t, exts, 2)

	single := &HostError{Op: "read extension list", Err: errors.New("missing")}
	_, err = MultiSource{fakeSource{err: single}}.ListExtensions(context.Background())
	assert.Same(t, single, err)

	_, err = MultiSource{failing, fakeSource{err: single}}.ListExtensions(context.Background())
	var hostErr *HostError
	require.True(t, errors.As(err, &hostErr))
	assert.Equal(t, "list extensions", hostErr.Op)
	assert.ErrorIs(t, err, single)
}
