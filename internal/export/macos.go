package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"howett.net/plist"

	"go-extension-exporter/internal/browsers"
)

type mobileConfig struct {
	PayloadContent           []policyPayload `plist:"PayloadContent"`
	PayloadDescription       string          `plist:"PayloadDescription"`
	PayloadDisplayName       string          `plist:"PayloadDisplayName"`
	PayloadIdentifier        string          `plist:"PayloadIdentifier"`
	PayloadRemovalDisallowed bool            `plist:"PayloadRemovalDisallowed"`
	PayloadScope             string          `plist:"PayloadScope"`
	PayloadType              string          `plist:"PayloadType"`
	PayloadUUID              string          `plist:"PayloadUUID"`
	PayloadVersion           int             `plist:"PayloadVersion"`
}

type policyPayload struct {
	PayloadDisplayName        string                      `plist:"PayloadDisplayName"`
	PayloadEnabled            bool                        `plist:"PayloadEnabled"`
	PayloadIdentifier         string                      `plist:"PayloadIdentifier"`
	PayloadType               string                      `plist:"PayloadType"`
	PayloadUUID               string                      `plist:"PayloadUUID"`
	PayloadVersion            int                         `plist:"PayloadVersion"`
	ExtensionSettings         map[string]ExtensionSetting `plist:"ExtensionSettings,omitempty"`
	ExtensionInstallForcelist []string                    `plist:"ExtensionInstallForcelist,omitempty"`
}

// profileUUIDs derives the payload and profile UUIDs from the export time
func profileUUIDs(date time.Time) (payload, profile string) {
	p := uuid.NewSHA1(uuid.NameSpaceURL, []byte("extension-exporter:"+date.UTC().Format(time.RFC3339Nano)))
	outer := uuid.NewSHA1(p, []byte("profile"))
	return strings.ToUpper(p.String()), strings.ToUpper(outer.String())
}

// GenerateMacOSPolicy writes a .mobileconfig configuration profile
func GenerateMacOSPolicy(items []browsers.Extension, b browsers.Browser, allowUninstall bool, date time.Time) (*Artifact, error) {
	v, err := vendor(b)
	if err != nil {
		return nil, err
	}
	ps, err := buildPolicy(items, allowUninstall)
	if err != nil {
		return nil, err
	}

	payloadUUID, profileUUID := profileUUIDs(date)
	profile := mobileConfig{
		PayloadContent: []policyPayload{{
			PayloadDisplayName:        v.Name + " Extension Settings",
			PayloadEnabled:            true,
			PayloadIdentifier:         v.BundleID + ".extensions.payload." + payloadUUID,
			PayloadType:               v.BundleID,
			PayloadUUID:               payloadUUID,
			PayloadVersion:            1,
			ExtensionSettings:         ps.settings,
			ExtensionInstallForcelist: ps.forcelist,
		}},
		PayloadDescription:       fmt.Sprintf("Manages %d extensions for %s", len(ps.ids), v.Name),
		PayloadDisplayName:       v.Name + " Extension Policy",
		PayloadIdentifier:        v.BundleID + ".extensions." + profileUUID,
		PayloadRemovalDisallowed: false,
		PayloadScope:             "System",
		PayloadType:              "Configuration",
		PayloadUUID:              profileUUID,
		PayloadVersion:           1,
	}

	content, err := plist.MarshalIndent(profile, plist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration profile: %w", err)
	}
	if len(content) == 0 || content[len(content)-1] != '\n' {
		content = append(content, '\n')
	}

	return &Artifact{
		Filename: policyFilename(b, date, "mobileconfig"),
		Content:  content,
		MimeType: "application/x-apple-aspen-config",
	}, nil
}
