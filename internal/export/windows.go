package export

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"go-extension-exporter/internal/browsers"
)

const (
	regHeader = "Windows Registry Editor Version 5.00"
	regRoot   = `HKEY_LOCAL_MACHINE\Software\Policies\`
	crlf      = "\r\n"
)

type windowsConfig struct {
	utf16 bool
}

// WindowsOption tweaks the registry script encoding
type WindowsOption func(*windowsConfig)

// WithUTF16 encodes the script as UTF-16LE with a byte order mark
func WithUTF16() WindowsOption {
	return func(c *windowsConfig) { c.utf16 = true }
}

// GenerateWindowsPolicy writes a .reg script under HKLM\Software\Policies\<Vendor>\<Browser>
func GenerateWindowsPolicy(items []browsers.Extension, b browsers.Browser, allowUninstall bool, date time.Time, opts ...WindowsOption) (*Artifact, error) {
	var cfg windowsConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	v, err := vendor(b)
	if err != nil {
		return nil, err
	}
	ps, err := buildPolicy(items, allowUninstall)
	if err != nil {
		return nil, err
	}

	base := regRoot + v.RegistryKey
	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(s)
		sb.WriteString(crlf)
	}

	line(regHeader)
	line("")

	if ps.settings != nil {
		for _, id := range ps.ids {
			s := ps.settings[id]
			line(fmt.Sprintf("[%s\\ExtensionSettings\\%s]", base, id))
			line(regValue("installation_mode", s.InstallationMode))
			line(regValue("update_url", s.UpdateURL))
			line("")
		}
	} else {
		line(fmt.Sprintf("[%s\\ExtensionInstallForcelist]", base))
		for i, entry := range ps.forcelist {
			line(regValue(fmt.Sprintf("%d", i+1), entry))
		}
		line("")
	}

	content := []byte(sb.String())
	if cfg.utf16 {
		content, err = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode registry script: %w", err)
		}
	}

	return &Artifact{
		Filename: policyFilename(b, date, "reg"),
		Content:  content,
		MimeType: "text/x-ms-regedit",
	}, nil
}

// regValue formats a REG_SZ assignment
func regValue(name, value string) string {
	return fmt.Sprintf("%s=%s", regString(name), regString(value))
}

func regString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
