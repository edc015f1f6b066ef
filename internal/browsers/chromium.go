package browsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type extensionSetting struct {
	Location       int             `json:"location"`
	State          *int            `json:"state"`
	DisableReasons json.RawMessage `json:"disable_reasons"`
	Path           string          `json:"path"`
	Manifest       *manifest       `json:"manifest"`
}

type manifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description"`
	DefaultLocale   string            `json:"default_locale"`
	Icons           map[string]string `json:"icons"`
	Permissions     []any             `json:"permissions"`
	HostPermissions []string          `json:"host_permissions"`
	App             json.RawMessage   `json:"app"`
	Theme           json.RawMessage   `json:"theme"`
}

// installTypes maps Chromium's Manifest::Location values to management API install types
var installTypes = map[int]string{
	1: InstallNormal,      // INTERNAL
	2: InstallSideload,    // EXTERNAL_PREF
	3: InstallSideload,    // EXTERNAL_REGISTRY
	4: InstallDevelopment, // UNPACKED
	6: InstallSideload,    // EXTERNAL_PREF_DOWNLOAD
	7: InstallAdmin,       // EXTERNAL_POLICY_DOWNLOAD
	8: InstallDevelopment, // COMMAND_LINE
	9: InstallAdmin,       // EXTERNAL_POLICY
}

// component locations are never shown by the management API
var componentLocations = map[int]bool{5: true, 10: true}

// getChromiumExtensions reads extension settings from every profile under a user data directory
func (ps *ProfileSource) getChromiumExtensions(basePath string, b Browser) ([]Extension, error) {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("user data directory not found at %s", basePath)
	}

	profileNames := loadProfileNames(basePath, ps.log)

	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read user data directory: %w", err)
	}

	var allExtensions []Extension
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		profileDir := entry.Name()
		if profileDir != "Default" && !strings.HasPrefix(profileDir, "Profile") {
			continue
		}

		profileName := profileNames[profileDir]
		if profileName == "" {
			profileName = profileDir
		}
		profilePath := filepath.Join(basePath, profileDir)

		settings, err := loadExtensionSettings(profilePath)
		if err != nil {
			ps.log.Warn("skipping profile", zap.String("profile", profileName), zap.Error(err))
			continue
		}

		ids := make([]string, 0, len(settings))
		for id := range settings {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			setting := settings[id]
			if componentLocations[setting.Location] {
				continue
			}
			ext, ok := ps.buildExtension(id, setting, profilePath)
			if !ok {
				continue
			}
			ext.Browser = b.String()
			ext.Profile = profileName
			allExtensions = append(allExtensions, ext)
		}
	}

	if len(allExtensions) == 0 {
		ps.log.Debug("no extensions found across profiles", zap.String("path", basePath))
	}

	return allExtensions, nil
}

// loadProfileNames maps profile directories to the display names from Local State
func loadProfileNames(basePath string, log *zap.Logger) map[string]string {
	profileNames := make(map[string]string)
	localStatePath := filepath.Join(basePath, "Local State")
	data, err := os.ReadFile(localStatePath)
	if err != nil {
		log.Debug("Local State not found, using directory names", zap.String("path", localStatePath))
		return profileNames
	}

	var localState struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(data, &localState); err != nil {
		log.Warn("failed to parse Local State", zap.String("path", localStatePath), zap.Error(err))
		return profileNames
	}
	for dir, info := range localState.Profile.InfoCache {
		profileNames[dir] = info.Name
	}
	return profileNames
}

// loadExtensionSettings merges extensions.settings from Preferences and Secure Preferences.
// Secure Preferences wins when both carry the same id.
func loadExtensionSettings(profilePath string) (map[string]extensionSetting, error) {
	merged := make(map[string]extensionSetting)
	read := 0
	for _, name := range []string{"Preferences", "Secure Preferences"} {
		data, err := os.ReadFile(filepath.Join(profilePath, name))
		if err != nil {
			continue
		}
		var prefs struct {
			Extensions struct {
				Settings map[string]extensionSetting `json:"settings"`
			} `json:"extensions"`
		}
		if err := json.Unmarshal(data, &prefs); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		read++
		for id, s := range prefs.Extensions.Settings {
			merged[id] = s
		}
	}
	if read == 0 {
		return nil, fmt.Errorf("no preferences file in %s", profilePath)
	}
	return merged, nil
}

func (ps *ProfileSource) buildExtension(id string, setting extensionSetting, profilePath string) (Extension, bool) {
	extPath := setting.Path
	if extPath != "" && !filepath.IsAbs(extPath) {
		extPath = filepath.Join(profilePath, "Extensions", extPath)
	}

	m := setting.Manifest
	if extPath != "" {
		manifestPath := filepath.Join(extPath, "manifest.json")
		if data, err := os.ReadFile(manifestPath); err == nil {
			var disk manifest
			if err := json.Unmarshal(data, &disk); err != nil {
				ps.log.Debug("failed to parse manifest", zap.String("path", manifestPath), zap.Error(err))
			} else {
				m = &disk
			}
		} else {
			ps.log.Debug("failed to read manifest", zap.String("path", manifestPath), zap.Error(err))
		}
	}
	if m == nil {
		return Extension{}, false
	}

	name := m.Name
	description := m.Description
	if extPath != "" {
		name = resolveMessage(name, extPath, m.DefaultLocale, ps.log)
		description = resolveMessage(description, extPath, m.DefaultLocale, ps.log)
	}

	installType, ok := installTypes[setting.Location]
	if !ok {
		installType = InstallOther
	}

	ext := Extension{
		ID:          id,
		Name:        name,
		Description: description,
		Version:     m.Version,
		Enabled:     isEnabled(setting),
		InstallType: installType,
		Type:        itemType(m),
	}
	if extPath != "" {
		ext.Icons = iconList(m.Icons, extPath)
	}
	ext.Permissions, ext.HostPermissions = splitPermissions(m.Permissions, m.HostPermissions)
	return ext, true
}

// isEnabled follows the legacy state field when present, otherwise the disable reasons
func isEnabled(s extensionSetting) bool {
	if s.State != nil {
		return *s.State == 1
	}
	raw := bytes.TrimSpace(s.DisableReasons)
	switch string(raw) {
	case "", "null", "0", "[]":
		return true
	}
	return false
}

func itemType(m *manifest) string {
	switch {
	case len(m.Theme) > 0:
		return "theme"
	case len(m.App) > 0:
		var app struct {
			Background json.RawMessage `json:"background"`
		}
		if err := json.Unmarshal(m.App, &app); err == nil && len(app.Background) > 0 {
			return "packaged_app"
		}
		return "hosted_app"
	default:
		return TypeExtension
	}
}

// iconList converts the manifest icon map into file URLs, largest last
func iconList(icons map[string]string, extPath string) []Icon {
	list := make([]Icon, 0, len(icons))
	for sizeStr, rel := range icons {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			continue
		}
		list = append(list, Icon{
			Size: size,
			URL:  fileURL(filepath.Join(extPath, filepath.FromSlash(strings.TrimPrefix(rel, "/")))),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Size < list[j].Size })
	return list
}

func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// splitPermissions separates API permissions from match patterns the way the management API does
func splitPermissions(perms []any, hostPerms []string) ([]string, []string) {
	var api, hosts []string
	for _, p := range perms {
		s, ok := p.(string)
		if !ok {
			continue
		}
		if s == "<all_urls>" || strings.Contains(s, "://") {
			hosts = append(hosts, s)
		} else {
			api = append(api, s)
		}
	}
	hosts = append(hosts, hostPerms...)
	return api, hosts
}
