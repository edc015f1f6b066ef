package browsers

import (
	"context"
	"fmt"
	"strings"
)

// Install types reported by the host for an extension.
const (
	InstallNormal      = "normal"
	InstallDevelopment = "development"
	InstallAdmin       = "admin"
	InstallSideload    = "sideload"
	InstallOther       = "other"
)

// TypeExtension is the only item type the exporter works with. Apps and themes are dropped.
const TypeExtension = "extension"

// Icon is one entry of an extension's icon list
type Icon struct {
	Size int    `json:"size"`
	URL  string `json:"url"`
}

// Extension represents a browser extension as reported by the host
type Extension struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Version         string   `json:"version"`
	Enabled         bool     `json:"enabled"`
	InstallType     string   `json:"installType"`
	Type            string   `json:"type"`
	Icons           []Icon   `json:"icons,omitempty"`
	Permissions     []string `json:"permissions,omitempty"`
	HostPermissions []string `json:"hostPermissions,omitempty"`
	Browser         string   `json:"browser,omitempty"`
	Profile         string   `json:"profile,omitempty"`
}

// IsLocal reports whether the extension was loaded unpacked and cannot come from a store
func (e Extension) IsLocal() bool {
	return e.InstallType == InstallDevelopment
}

// IconURL returns the URL of the largest icon, or an empty string
func (e Extension) IconURL() string {
	if len(e.Icons) == 0 {
		return ""
	}
	return e.Icons[len(e.Icons)-1].URL
}

// Source lists the extensions installed in a browser
type Source interface {
	ListExtensions(ctx context.Context) ([]Extension, error)
}

// HostError is a failure reported while listing extensions. Its message is shown as-is.
type HostError struct {
	Op  string
	Err error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// Browser identifies a Chromium-family browser vendor
type Browser string

const (
	Chrome Browser = "chrome"
	Brave  Browser = "brave"
	Edge   Browser = "edge"
)

// BrowserConfig defines browser-specific configuration
type BrowserConfig struct {
	Name        string
	WindowsPath []string
	MacOSPath   []string
	LinuxPath   []string
	// RegistryKey is the path under HKLM\Software\Policies
	RegistryKey string
	BundleID    string
	// LinuxPolicyDir is where managed JSON policies are read from
	LinuxPolicyDir string
}

var configs = map[Browser]BrowserConfig{
	Chrome: {
		Name: "Google Chrome",
		WindowsPath: []string{
			"AppData", "Local", "Google", "Chrome", "User Data",
		},
		MacOSPath: []string{
			"Library", "Application Support", "Google", "Chrome",
		},
		LinuxPath: []string{
			".config", "google-chrome",
		},
		RegistryKey:    `Google\Chrome`,
		BundleID:       "com.google.Chrome",
		LinuxPolicyDir: "/etc/opt/chrome/policies/managed/",
	},
	Brave: {
		Name: "Brave",
		WindowsPath: []string{
			"AppData", "Local", "BraveSoftware", "Brave-Browser", "User Data",
		},
		MacOSPath: []string{
			"Library", "Application Support", "BraveSoftware", "Brave-Browser",
		},
		LinuxPath: []string{
			".config", "BraveSoftware", "Brave-Browser",
		},
		RegistryKey:    `BraveSoftware\Brave`,
		BundleID:       "com.brave.Browser",
		LinuxPolicyDir: "/etc/brave/policies/managed/",
	},
	Edge: {
		Name: "Microsoft Edge",
		WindowsPath: []string{
			"AppData", "Local", "Microsoft", "Edge", "User Data",
		},
		MacOSPath: []string{
			"Library", "Application Support", "Microsoft Edge",
		},
		LinuxPath: []string{
			".config", "microsoft-edge",
		},
		RegistryKey:    `Microsoft\Edge`,
		BundleID:       "com.microsoft.Edge",
		LinuxPolicyDir: "/etc/opt/edge/policies/managed/",
	},
}

// All lists the supported browsers in display order
var All = []Browser{Chrome, Brave, Edge}

// ParseBrowser converts a user-supplied name into a Browser
func ParseBrowser(name string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := configs[b]; !ok {
		return "", fmt.Errorf("unknown browser %q (use chrome, brave or edge)", name)
	}
	return b, nil
}

// Config returns the configuration for a browser
func (b Browser) Config() (BrowserConfig, bool) {
	c, ok := configs[b]
	return c, ok
}

func (b Browser) String() string {
	return string(b)
}
