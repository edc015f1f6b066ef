// Package icons inlines extension icons as PNG data URLs.
package icons

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder.
	_ "image/jpeg" // Register JPEG decoder.
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // Register BMP decoder.
	_ "golang.org/x/image/webp" // Register WebP decoder.
	"golang.org/x/sync/errgroup"

	"go-extension-exporter/internal/browsers"
)

// DataURLPrefix starts every resolved icon
const DataURLPrefix = "data:image/png;base64,"

// DefaultMaxBytes caps the size of a fetched or read icon
const DefaultMaxBytes = 4 << 20

// Options configures a Resolver
type Options struct {
	// Timeout bounds each HTTP fetch
	Timeout time.Duration
	// Concurrency caps parallel fetches in ResolveAll; 0 means no cap
	Concurrency int
	// MaxBytes caps the icon size; larger bodies and files are rejected unread
	MaxBytes  int
	UserAgent string
}

// DefaultOptions returns the resolver defaults
func DefaultOptions() Options {
	return Options{
		Timeout:   5 * time.Second,
		MaxBytes:  DefaultMaxBytes,
		UserAgent: "extension-exporter/1.0",
	}
}

// Resolver fetches icons and re-encodes them as PNG data URLs
type Resolver struct {
	client   *resty.Client
	limit    int
	maxBytes int
	log      *zap.Logger
}

// NewResolver creates a resolver. Fetches are never retried.
func NewResolver(opts Options, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetResponseBodyLimit(opts.MaxBytes).
		SetLogger(restyLogger{log.Sugar()})
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Resolver{client: client, limit: opts.Concurrency, maxBytes: opts.MaxBytes, log: log}
}

// restyLogger logs resty errors at debug level since icon failures are absorbed
type restyLogger struct {
	*zap.SugaredLogger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.Debugf(format, v...)
}

// Resolve returns the icon at rawURL as a PNG data URL, or "" when it cannot be
// loaded or decoded. It never fails.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	if rawURL == "" {
		return ""
	}

	data, err := r.load(ctx, rawURL)
	if err != nil {
		r.log.Debug("could not load icon", zap.String("url", rawURL), zap.Error(err))
		return ""
	}

	encoded, err := encodePNG(data, r.maxBytes)
	if err != nil {
		r.log.Debug("could not convert icon", zap.String("url", rawURL), zap.Error(err))
		return ""
	}
	return encoded
}

// ResolveAll resolves the largest icon of every record concurrently. The result only
// holds records whose icon resolved.
func (r *Resolver) ResolveAll(ctx context.Context, records []browsers.Extension) map[string]string {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make(map[string]string, len(records))
	)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	for _, rec := range records {
		iconURL := rec.IconURL()
		if iconURL == "" {
			continue
		}
		id := rec.ID
		g.Go(func() error {
			if data := r.Resolve(ctx, iconURL); data != "" {
				mu.Lock()
				out[id] = data
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Resolver) load(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid icon url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		resp, err := r.client.R().SetContext(ctx).Get(rawURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode())
		}
		return resp.Body(), nil
	case "file":
		path := localPath(u)
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > int64(r.maxBytes) {
			return nil, fmt.Errorf("icon file too large: %d bytes", info.Size())
		}
		return os.ReadFile(path)
	case "data":
		return decodeDataURL(rawURL)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

// localPath turns a file URL path into an OS path, dropping the slash before a drive letter
func localPath(u *url.URL) string {
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func decodeDataURL(rawURL string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data url")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// encodePNG decodes any supported raster image and re-encodes it as a PNG data URL
func encodePNG(data []byte, maxBytes int) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if len(data) > maxBytes {
		return "", fmt.Errorf("image too large: %d bytes", len(data))
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("not an image: %s", mtype.String())
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", mtype.String(), err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode png: %w", err)
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
