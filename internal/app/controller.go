// Package app wires the inventory source, the selection and the exporters together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/config"
	"go-extension-exporter/internal/export"
	"go-extension-exporter/internal/inventory"
	"go-extension-exporter/internal/locale"
)

// ErrNothingSelected is returned by Export when the selection is empty
var ErrNothingSelected = errors.New("no extensions selected")

// Format is an export target
type Format string

const (
	FormatHTML    Format = "html"
	FormatWindows Format = "windows"
	FormatMacOS   Format = "macos"
	FormatLinux   Format = "linux"
)

// ParseFormat validates a user-supplied export format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML:
		return f, nil
	default:
		target, err := export.ParseTargetOS(s)
		if err != nil {
			return "", err
		}
		return Format(target), nil
	}
}

// ResolveFormat returns the -format flag value when set and the configured format otherwise
func ResolveFormat(flagValue string, cfg *config.Config) (Format, error) {
	if strings.TrimSpace(flagValue) != "" {
		return ParseFormat(flagValue)
	}
	return ParseFormat(cfg.Export.Format)
}

// IconResolver inlines icons for the HTML report
type IconResolver interface {
	ResolveAll(ctx context.Context, records []browsers.Extension) map[string]string
}

// Options configures a Controller
type Options struct {
	ExcludeIDs     []string
	Browser        browsers.Browser
	AllowUninstall bool
	RegUTF16       bool
	Strings        locale.Strings
}

// Controller owns the loaded inventory and the user's selection
type Controller struct {
	source    browsers.Source
	icons     IconResolver
	opts      Options
	log       *zap.Logger
	now       func() time.Time
	fetched   int
	records   []browsers.Extension
	selection *inventory.Selection
}

// NewController creates a controller with an empty selection
func NewController(source browsers.Source, icons IconResolver, opts Options, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Browser == "" {
		opts.Browser = browsers.Chrome
	}
	if opts.Strings.Tag == "" {
		opts.Strings = locale.English()
	}
	return &Controller{
		source:    source,
		icons:     icons,
		opts:      opts,
		log:       log,
		now:       time.Now,
		selection: inventory.NewSelection(),
	}
}

// Load fetches the inventory, keeps extensions only and sorts them enabled-first.
// Host errors are returned unchanged so they can be shown to the user.
func (c *Controller) Load(ctx context.Context) ([]browsers.Extension, error) {
	raw, err := c.source.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	c.fetched = len(raw)
	c.records = inventory.Prepare(raw, c.opts.ExcludeIDs...)
	c.log.Debug("inventory loaded", zap.Int("fetched", len(raw)), zap.Int("kept", len(c.records)))
	return c.records, nil
}

// Fetched returns how many records the source returned before filtering
func (c *Controller) Fetched() int {
	return c.fetched
}

// Records returns the loaded inventory
func (c *Controller) Records() []browsers.Extension {
	return c.records
}

// Groups returns the loaded inventory split into buckets
func (c *Controller) Groups() inventory.Groups {
	return inventory.Group(c.records)
}

// Selection returns the selection state owned by this controller
func (c *Controller) Selection() *inventory.Selection {
	return c.selection
}

// SelectAll selects every loaded extension
func (c *Controller) SelectAll() {
	c.selection.SelectAll(c.records)
}

// DeselectAll clears the selection
func (c *Controller) DeselectAll() {
	c.selection.Clear()
}

// Toggle flips the selection state of id and reports whether it is now selected
func (c *Controller) Toggle(id string) bool {
	return c.selection.Toggle(id)
}

// Select adds ids to the selection, returning the ids that do not match a loaded extension
func (c *Controller) Select(ids ...string) []string {
	known := make(map[string]bool, len(c.records))
	for _, r := range c.records {
		known[r.ID] = true
	}
	var unknown []string
	for _, id := range ids {
		if !known[id] {
			unknown = append(unknown, id)
			continue
		}
		c.selection.Select(id)
	}
	return unknown
}

// Permissions returns the permissions and host permissions of a loaded extension
func (c *Controller) Permissions(id string) ([]string, bool) {
	for _, r := range c.records {
		if r.ID == id {
			return inventory.Permissions(r), true
		}
	}
	return nil, false
}

// Export renders the selected extensions in the requested format
func (c *Controller) Export(ctx context.Context, format Format) (*export.Artifact, error) {
	selected := c.selection.Filter(c.records)
	if len(selected) == 0 {
		return nil, ErrNothingSelected
	}
	date := c.now()

	var (
		artifact *export.Artifact
		err      error
	)
	switch format {
	case FormatHTML:
		var iconMap map[string]string
		if c.icons != nil {
			iconMap = c.icons.ResolveAll(ctx, selected)
		}
		artifact, err = export.RenderHTMLReport(inventory.Group(selected), iconMap, c.opts.Strings, date)
	default:
		artifact, err = export.GeneratePolicy(selected, export.PolicyOptions{
			TargetOS:       export.TargetOS(format),
			Browser:        c.opts.Browser,
			AllowUninstall: c.opts.AllowUninstall,
			RegUTF16:       c.opts.RegUTF16,
		}, date)
	}
	if err != nil {
		return nil, err
	}

	c.log.Info("export generated",
		zap.String("format", string(format)),
		zap.String("file", artifact.Filename),
		zap.Int("selected", len(selected)),
	)
	return artifact, nil
}

// Save writes the artifact into dir and returns its path
func (c *Controller) Save(artifact *export.Artifact, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, artifact.Filename)
	if err := os.WriteFile(path, artifact.Content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
