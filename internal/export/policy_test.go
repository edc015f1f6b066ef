package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"howett.net/plist"

	"go-extension-exporter/internal/browsers"
)

var exportDate = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func store(id string, enabled bool) browsers.Extension {
	return browsers.Extension{ID: id, Name: id, Version: "1.0", Enabled: enabled, InstallType: browsers.InstallNormal, Type: browsers.TypeExtension}
}

func local(id string) browsers.Extension {
	return browsers.Extension{ID: id, Name: id, Version: "0.1", Enabled: true, InstallType: browsers.InstallDevelopment, Type: browsers.TypeExtension}
}

func TestWindowsForcelist(t *testing.T) {
	items := []browsers.Extension{store("ccc", true), local("dev"), store("aaa", false), store("bbb", true)}

	art, err := GenerateWindowsPolicy(items, browsers.Chrome, false, exportDate)
	require.NoError(t, err)
	assert.Equal(t, "extensions-policy-chrome-2024-03-05.reg", art.Filename)

	content := string(art.Content)
	assert.True(t, strings.HasPrefix(content, "Windows Registry Editor Version 5.00\r\n\r\n"))
	assert.NotContains(t, strings.ReplaceAll(content, "\r\n", ""), "\n", "every line ends with CRLF")
	assert.Contains(t, content, `[HKEY_LOCAL_MACHINE\Software\Policies\Google\Chrome\ExtensionInstallForcelist]`)
	assert.NotContains(t, content, "ExtensionSettings")
	assert.NotContains(t, content, "dev;")

	entries := regexp.MustCompile(`"(\d+)"="([^;"]+);([^"]+)"`).FindAllStringSubmatch(content, -1)
	require.Len(t, entries, 3)
	for i, want := range []string{"ccc", "aaa", "bbb"} {
		assert.Equal(t, fmt.Sprintf("%d", i+1), entries[i][1])
		assert.Equal(t, want, entries[i][2])
		assert.Equal(t, UpdateURL, entries[i][3])
	}
}

func TestWindowsExtensionSettings(t *testing.T) {
	items := []browsers.Extension{store("aaa", true), store("bbb", false)}

	art, err := GenerateWindowsPolicy(items, browsers.Edge, true, exportDate)
	require.NoError(t, err)

	content := string(art.Content)
	assert.NotContains(t, content, "ExtensionInstallForcelist")
	for _, id := range []string{"aaa", "bbb"} {
		block := fmt.Sprintf("[HKEY_LOCAL_MACHINE\\Software\\Policies\\Microsoft\\Edge\\ExtensionSettings\\%s]\r\n"+
			"\"installation_mode\"=\"normal_installed\"\r\n"+
			"\"update_url\"=\"%s\"\r\n", id, UpdateURL)
		assert.Contains(t, content, block)
	}
	assert.Less(t, strings.Index(content, `\aaa]`), strings.Index(content, `\bbb]`))
}

func TestWindowsUTF16(t *testing.T) {
	items := []browsers.Extension{store("aaa", true)}
	plain, err := GenerateWindowsPolicy(items, browsers.Brave, false, exportDate)
	require.NoError(t, err)
	wide, err := GenerateWindowsPolicy(items, browsers.Brave, false, exportDate, WithUTF16())
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(wide.Content), 2)
	assert.Equal(t, []byte{0xFF, 0xFE}, wide.Content[:2])

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(wide.Content)
	require.NoError(t, err)
	assert.Equal(t, string(plain.Content), string(decoded))
	assert.Contains(t, string(decoded), `Policies\BraveSoftware\Brave\ExtensionInstallForcelist`)
}

func TestRegString(t *testing.T) {
	assert.Equal(t, `"a\\b\"c"`, regString(`a\b"c`))
}

func parseLinux(t *testing.T, art *Artifact) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal(art.Content, &doc))
	return doc
}

func TestLinuxExtensionSettings(t *testing.T) {
	art, err := GenerateLinuxPolicy([]browsers.Extension{store("abc", true)}, browsers.Chrome, true, exportDate)
	require.NoError(t, err)
	assert.Equal(t, "extensions-policy-chrome-2024-03-05.json", art.Filename)
	assert.Equal(t, "application/json", art.MimeType)

	doc := parseLinux(t, art)
	assert.NotContains(t, doc, "ExtensionInstallForcelist")
	settings := doc["ExtensionSettings"].(map[string]any)
	abc := settings["abc"].(map[string]any)
	assert.Equal(t, "normal_installed", abc["installation_mode"])
	assert.Equal(t, UpdateURL, abc["update_url"])
	assert.Contains(t, doc["_installation_instructions"], "/etc/opt/chrome/policies/managed/")

	assert.Contains(t, string(art.Content), "\n    \"_installation_instructions\"")
	assert.Contains(t, string(art.Content), "\n        \"abc\": {")
}

func TestLinuxForcelist(t *testing.T) {
	items := []browsers.Extension{store("one", true), local("dev"), store("two", false)}
	art, err := GenerateLinuxPolicy(items, browsers.Brave, false, exportDate)
	require.NoError(t, err)

	doc := parseLinux(t, art)
	assert.NotContains(t, doc, "ExtensionSettings")
	assert.Equal(t, []any{"one;" + UpdateURL, "two;" + UpdateURL}, doc["ExtensionInstallForcelist"])
	assert.Contains(t, doc["_installation_instructions"], "/etc/brave/policies/managed/")
}

func TestLinuxShapesAreExclusive(t *testing.T) {
	for _, allow := range []bool{true, false} {
		art, err := GenerateLinuxPolicy([]browsers.Extension{store("x", true), store("y", false)}, browsers.Edge, allow, exportDate)
		require.NoError(t, err)
		doc := parseLinux(t, art)
		_, hasSettings := doc["ExtensionSettings"]
		_, hasForcelist := doc["ExtensionInstallForcelist"]
		assert.True(t, hasSettings != hasForcelist, "allowUninstall=%v", allow)
	}
}

func TestMacOSProfile(t *testing.T) {
	items := []browsers.Extension{store("aaa", true), local("dev"), store("bbb", true)}
	art, err := GenerateMacOSPolicy(items, browsers.Brave, false, exportDate)
	require.NoError(t, err)
	assert.Equal(t, "extensions-policy-brave-2024-03-05.mobileconfig", art.Filename)
	assert.Equal(t, "application/x-apple-aspen-config", art.MimeType)

	content := string(art.Content)
	assert.Contains(t, content, `<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"`)
	assert.Contains(t, content, `<plist version="1.0">`)

	var profile mobileConfig
	_, err = plist.Unmarshal(art.Content, &profile)
	require.NoError(t, err)

	assert.Equal(t, "Configuration", profile.PayloadType)
	assert.Equal(t, 1, profile.PayloadVersion)
	require.Len(t, profile.PayloadContent, 1)

	payload := profile.PayloadContent[0]
	assert.Equal(t, "com.brave.Browser", payload.PayloadType)
	assert.Equal(t, []string{"aaa;" + UpdateURL, "bbb;" + UpdateURL}, payload.ExtensionInstallForcelist)
	assert.Empty(t, payload.ExtensionSettings)
	assert.NotContains(t, content, "<key>ExtensionSettings</key>")

	assert.NotEmpty(t, payload.PayloadUUID)
	assert.NotEqual(t, payload.PayloadUUID, profile.PayloadUUID)
	assert.True(t, strings.HasPrefix(profile.PayloadIdentifier, "com.brave.Browser.extensions."))
}

func TestMacOSExtensionSettings(t *testing.T) {
	art, err := GenerateMacOSPolicy([]browsers.Extension{store("abc", false)}, browsers.Chrome, true, exportDate)
	require.NoError(t, err)

	var profile mobileConfig
	_, err = plist.Unmarshal(art.Content, &profile)
	require.NoError(t, err)

	payload := profile.PayloadContent[0]
	assert.Equal(t, "com.google.Chrome", payload.PayloadType)
	assert.Empty(t, payload.ExtensionInstallForcelist)
	assert.Equal(t, ExtensionSetting{InstallationMode: "normal_installed", UpdateURL: UpdateURL}, payload.ExtensionSettings["abc"])
}

func TestProfileUUIDs(t *testing.T) {
	p1, o1 := profileUUIDs(exportDate)
	p2, o2 := profileUUIDs(exportDate)
	p3, _ := profileUUIDs(exportDate.Add(time.Millisecond))

	assert.Equal(t, p1, p2)
	assert.Equal(t, o1, o2)
	assert.NotEqual(t, p1, o1)
	assert.NotEqual(t, p1, p3)
	assert.Regexp(t, `^[0-9A-F]{8}-[0-9A-F]{4}-5[0-9A-F]{3}-[89AB][0-9A-F]{3}-[0-9A-F]{12}$`, p1)
}

func TestPoliciesRejectLocalOnly(t *testing.T) {
	onlyLocal := []browsers.Extension{local("dev1"), local("dev2")}

	generators := map[TargetOS]func([]browsers.Extension) (*Artifact, error){
		Windows: func(items []browsers.Extension) (*Artifact, error) {
			return GenerateWindowsPolicy(items, browsers.Chrome, false, exportDate)
		},
		MacOS: func(items []browsers.Extension) (*Artifact, error) {
			return GenerateMacOSPolicy(items, browsers.Chrome, false, exportDate)
		},
		Linux: func(items []browsers.Extension) (*Artifact, error) {
			return GenerateLinuxPolicy(items, browsers.Chrome, true, exportDate)
		},
	}

	for target, gen := range generators {
		for _, items := range [][]browsers.Extension{onlyLocal, nil} {
			art, err := gen(items)
			assert.Nil(t, art, target)
			assert.True(t, errors.Is(err, ErrValidation), "%s: %v", target, err)

			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), target)
		}
	}
}

func TestGeneratePolicyDispatch(t *testing.T) {
	items := []browsers.Extension{store("abc", true)}

	for target, ext := range map[TargetOS]string{Windows: ".reg", MacOS: ".mobileconfig", Linux: ".json"} {
		art, err := GeneratePolicy(items, PolicyOptions{TargetOS: target, Browser: browsers.Edge}, exportDate)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(art.Filename, ext), art.Filename)
		assert.True(t, strings.HasPrefix(art.Filename, "extensions-policy-edge-"), art.Filename)
	}

	art, err := GeneratePolicy(items, PolicyOptions{TargetOS: Windows, Browser: browsers.Chrome, RegUTF16: true}, exportDate)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFE}, art.Content[:2])
}

func TestGeneratePolicyUnsupported(t *testing.T) {
	items := []browsers.Extension{store("abc", true)}

	_, err := GeneratePolicy(items, PolicyOptions{TargetOS: "plan9", Browser: browsers.Chrome}, exportDate)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	var perr *UnsupportedPlatformError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "plan9", perr.Target)

	_, err = GeneratePolicy(items, PolicyOptions{TargetOS: Linux, Browser: "opera"}, exportDate)
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
	var berr *UnsupportedBrowserError
	assert.True(t, errors.As(err, &berr))
}

func TestParseTargetOS(t *testing.T) {
	for in, want := range map[string]TargetOS{"Windows": Windows, "darwin": MacOS, "macOS": MacOS, " linux ": Linux} {
		got, err := ParseTargetOS(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseTargetOS("beos")
	assert.True(t, errors.Is(err, ErrUnsupportedPlatform))
}

func TestBuildPolicyDeduplicates(t *testing.T) {
	ps, err := buildPolicy([]browsers.Extension{store("a", true), store("a", false), store("b", true)}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ps.ids)
	assert.Len(t, ps.forcelist, 2)
	assert.Nil(t, ps.settings)
}
