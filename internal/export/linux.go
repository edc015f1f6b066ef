package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"go-extension-exporter/internal/browsers"
)

type linuxPolicy struct {
	Instructions              string                      `json:"_installation_instructions"`
	ExtensionSettings         map[string]ExtensionSetting `json:"ExtensionSettings,omitempty"`
	ExtensionInstallForcelist []string                    `json:"ExtensionInstallForcelist,omitempty"`
}

// GenerateLinuxPolicy writes a managed policy JSON file
func GenerateLinuxPolicy(items []browsers.Extension, b browsers.Browser, allowUninstall bool, date time.Time) (*Artifact, error) {
	v, err := vendor(b)
	if err != nil {
		return nil, err
	}
	ps, err := buildPolicy(items, allowUninstall)
	if err != nil {
		return nil, err
	}

	doc := linuxPolicy{
		Instructions:              fmt.Sprintf("Copy this file to %s and restart %s.", v.LinuxPolicyDir, v.Name),
		ExtensionSettings:         ps.settings,
		ExtensionInstallForcelist: ps.forcelist,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode policy: %w", err)
	}

	return &Artifact{
		Filename: policyFilename(b, date, "json"),
		Content:  buf.Bytes(),
		MimeType: "application/json",
	}, nil
}
