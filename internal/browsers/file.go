package browsers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads a JSON dump of chrome.management.getAll()
type FileSource struct {
	Path string
}

// ListExtensions parses the dump. Records without a type are treated as extensions.
func (fs FileSource) ListExtensions(ctx context.Context) ([]Extension, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.Path)
	if err != nil {
		return nil, &HostError{Op: "read extension list", Err: err}
	}

	var exts []Extension
	if err := json.Unmarshal(data, &exts); err != nil {
		return nil, &HostError{Op: "parse extension list", Err: fmt.Errorf("%s: %w", fs.Path, err)}
	}

	for i := range exts {
		if exts[i].Type == "" {
			exts[i].Type = TypeExtension
		}
		if exts[i].InstallType == "" {
			exts[i].InstallType = InstallOther
		}
	}
	return exts, nil
}
