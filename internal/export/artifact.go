// Package export renders selected extensions as an HTML report or as managed-browser
// policy files for Windows, macOS and Linux.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-extension-exporter/internal/browsers"
)

// UpdateURL is the web store update endpoint every policy points at
const UpdateURL = "https://clients2.google.com/service/update2/crx"

// dateLayout is used in every generated filename
const dateLayout = "2006-01-02"

var (
	// ErrValidation is returned when no extension is left to put in a policy
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedPlatform is returned for an unknown target OS or browser
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// ValidationError describes why an export had nothing to work with
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// UnsupportedPlatformError is returned for a target OS with no policy format
type UnsupportedPlatformError struct {
	Target string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported target platform %q", e.Target)
}

func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// UnsupportedBrowserError is returned for a browser missing from the vendor table
type UnsupportedBrowserError struct {
	Browser string
}

func (e *UnsupportedBrowserError) Error() string {
	return fmt.Sprintf("unsupported browser %q", e.Browser)
}

func (e *UnsupportedBrowserError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// Artifact is a generated file ready to be saved
type Artifact struct {
	Filename string
	Content  []byte
	MimeType string
}

// TargetOS is the operating system a policy file is written for
type TargetOS string

const (
	Windows TargetOS = "windows"
	MacOS   TargetOS = "macos"
	Linux   TargetOS = "linux"
)

// ParseTargetOS accepts the usual spellings of the supported platforms
func ParseTargetOS(s string) (TargetOS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "windows", "win":
		return Windows, nil
	case "macos", "mac", "darwin", "osx":
		return MacOS, nil
	case "linux":
		return Linux, nil
	}
	return "", &UnsupportedPlatformError{Target: s}
}

// PolicyOptions selects the policy flavour for one export
type PolicyOptions struct {
	TargetOS       TargetOS
	Browser        browsers.Browser
	AllowUninstall bool
	// RegUTF16 writes Windows scripts as UTF-16LE with a BOM, like regedit does
	RegUTF16 bool
}

func policyFilename(b browsers.Browser, date time.Time, ext string) string {
	return fmt.Sprintf("extensions-policy-%s-%s.%s", b, date.UTC().Format(dateLayout), ext)
}
