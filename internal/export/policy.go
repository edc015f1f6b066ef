package export

import (
	"time"

	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/inventory"
)

const installationModeNormal = "normal_installed"

// ExtensionSetting is one entry of the ExtensionSettings policy
type ExtensionSetting struct {
	InstallationMode string `json:"installation_mode" plist:"installation_mode"`
	UpdateURL        string `json:"update_url" plist:"update_url"`
}

// policySet holds exactly one of the two policy shapes
type policySet struct {
	ids       []string
	settings  map[string]ExtensionSetting
	forcelist []string
}

// buildPolicy drops local extensions and builds the ExtensionSettings dictionary when
// uninstall is allowed, the ExtensionInstallForcelist otherwise.
func buildPolicy(items []browsers.Extension, allowUninstall bool) (policySet, error) {
	eligible := inventory.Eligible(items)

	var ps policySet
	seen := make(map[string]bool, len(eligible))
	for _, e := range eligible {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		ps.ids = append(ps.ids, e.ID)
	}
	if len(ps.ids) == 0 {
		return ps, &ValidationError{Reason: "no store-installable extensions selected (local extensions cannot be deployed by policy)"}
	}

	if allowUninstall {
		ps.settings = make(map[string]ExtensionSetting, len(ps.ids))
		for _, id := range ps.ids {
			ps.settings[id] = ExtensionSetting{InstallationMode: installationModeNormal, UpdateURL: UpdateURL}
		}
		return ps, nil
	}

	for _, id := range ps.ids {
		ps.forcelist = append(ps.forcelist, forcelistEntry(id))
	}
	return ps, nil
}

func forcelistEntry(id string) string {
	return id + ";" + UpdateURL
}

func vendor(b browsers.Browser) (browsers.BrowserConfig, error) {
	cfg, ok := b.Config()
	if !ok {
		return cfg, &UnsupportedBrowserError{Browser: string(b)}
	}
	return cfg, nil
}

// GeneratePolicy renders the policy file for opts.TargetOS
func GeneratePolicy(items []browsers.Extension, opts PolicyOptions, date time.Time) (*Artifact, error) {
	switch opts.TargetOS {
	case Windows:
		var wopts []WindowsOption
		if opts.RegUTF16 {
			wopts = append(wopts, WithUTF16())
		}
		return GenerateWindowsPolicy(items, opts.Browser, opts.AllowUninstall, date, wopts...)
	case MacOS:
		return GenerateMacOSPolicy(items, opts.Browser, opts.AllowUninstall, date)
	case Linux:
		return GenerateLinuxPolicy(items, opts.Browser, opts.AllowUninstall, date)
	default:
		return nil, &UnsupportedPlatformError{Target: string(opts.TargetOS)}
	}
}
