package browsers

import (
	"context"
	"errors"
)

// MultiSource concatenates several sources. It fails only when every source fails.
type MultiSource []Source

// ListExtensions implements Source
func (m MultiSource) ListExtensions(ctx context.Context) ([]Extension, error) {
	var all []Extension
	var errs []error
	for _, src := range m {
		exts, err := src.ListExtensions(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		all = append(all, exts...)
	}
	if len(m) > 0 && len(errs) == len(m) {
		var hostErr *HostError
		if len(errs) == 1 && errors.As(errs[0], &hostErr) {
			return nil, errs[0]
		}
		return nil, &HostError{Op: "list extensions", Err: errors.Join(errs...)}
	}
	return all, nil
}
