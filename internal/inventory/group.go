// Package inventory groups, orders and selects extension records.
//
// Group is the only place that decides which bucket a record belongs to; the list
// view and every export path call it.
package inventory

import (
	"sort"
	"strings"

	"go-extension-exporter/internal/browsers"
)

// Kind names a bucket of the grouped inventory
type Kind string

const (
	KindLocal    Kind = "local"
	KindEnabled  Kind = "enabled"
	KindDisabled Kind = "disabled"
)

// Groups is the inventory split into local, enabled and disabled extensions
type Groups struct {
	Local    []browsers.Extension `json:"local"`
	Enabled  []browsers.Extension `json:"enabled"`
	Disabled []browsers.Extension `json:"disabled"`
}

// Section is one non-empty bucket
type Section struct {
	Kind       Kind
	Extensions []browsers.Extension
}

// Group partitions records into buckets, keeping input order inside each bucket.
// Development installs go to Local whatever their enabled state.
func Group(records []browsers.Extension) Groups {
	var g Groups
	for _, r := range records {
		switch {
		case r.IsLocal():
			g.Local = append(g.Local, r)
		case r.Enabled:
			g.Enabled = append(g.Enabled, r)
		default:
			g.Disabled = append(g.Disabled, r)
		}
	}
	return g
}

// Sections returns the non-empty buckets in the order local, enabled, disabled
func (g Groups) Sections() []Section {
	var out []Section
	for _, s := range []Section{
		{Kind: KindLocal, Extensions: g.Local},
		{Kind: KindEnabled, Extensions: g.Enabled},
		{Kind: KindDisabled, Extensions: g.Disabled},
	} {
		if len(s.Extensions) > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of records across all buckets
func (g Groups) Len() int {
	return len(g.Local) + len(g.Enabled) + len(g.Disabled)
}

// Eligible drops records that only exist locally and cannot be deployed from a store
func Eligible(records []browsers.Extension) []browsers.Extension {
	var out []browsers.Extension
	for _, r := range records {
		if !r.IsLocal() {
			out = append(out, r)
		}
	}
	return out
}

// Prepare keeps extensions only, drops the excluded ids and sorts the rest enabled-first,
// then by name. The input slice is not modified.
func Prepare(records []browsers.Extension, excludeIDs ...string) []browsers.Extension {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	out := make([]browsers.Extension, 0, len(records))
	for _, r := range records {
		if r.Type != browsers.TypeExtension || excluded[r.ID] {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Enabled != out[j].Enabled {
			return out[i].Enabled
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Permissions returns API permissions followed by host permissions
func Permissions(ext browsers.Extension) []string {
	perms := make([]string, 0, len(ext.Permissions)+len(ext.HostPermissions))
	perms = append(perms, ext.Permissions...)
	return append(perms, ext.HostPermissions...)
}
