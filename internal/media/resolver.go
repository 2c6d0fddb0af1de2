package media

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keagan/tabreel/pkg/util"
)

// Resolver turns source references into bytes or local files.
//
//	store:<id>        recording in the library
//	http(s)://...     remote media
//	file://... or path local file
type Resolver struct {
	lib      Library
	client   *http.Client
	cacheDir string
	logger   zerolog.Logger

	mu    sync.Mutex
	local map[string]string
}

// NewResolver creates a resolver; lib may be nil when no store is configured
func NewResolver(lib Library, cacheDir string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lib:      lib,
		client:   http.DefaultClient,
		cacheDir: cacheDir,
		logger:   logger.With().Str("component", "media").Logger(),
		local:    make(map[string]string),
	}
}

// Fetch returns the bytes behind ref
func (r *Resolver) Fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, storePrefix):
		if r.lib == nil {
			return nil, fmt.Errorf("no recording store configured for %s", ref)
		}
		return r.lib.GetMediaBytes(ctx, strings.TrimPrefix(ref, storePrefix))
	case isRemote(ref):
		return r.download(ctx, ref)
	default:
		data, err := os.ReadFile(localPath(ref))
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return data, err
	}
}

// Localize returns a file path for ref, materialising non-file sources into
// the cache directory once.
func (r *Resolver) Localize(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, storePrefix) && !isRemote(ref) {
		path := localPath(ref)
		if !util.FileExists(path) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return path, nil
	}

	r.mu.Lock()
	path, ok := r.local[ref]
	r.mu.Unlock()
	if ok && util.FileExists(path) {
		return path, nil
	}

	data, err := r.Fetch(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := util.EnsureDir(r.cacheDir); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	sum := sha1.Sum([]byte(ref))
	path = filepath.Join(r.cacheDir, hex.EncodeToString(sum[:8])+extensionOf(ref))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to cache %s: %w", ref, err)
	}

	r.logger.Debug().Str("ref", ref).Str("path", path).Int("bytes", len(data)).Msg("cached media")

	r.mu.Lock()
	r.local[ref] = path
	r.mu.Unlock()
	return path, nil
}

func (r *Resolver) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func localPath(ref string) string {
	return strings.TrimPrefix(ref, "file://")
}

// extensionOf keeps a recognisable container extension for the transcoder
func extensionOf(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if ext := util.GetExtension(ref); ext != "" && len(ext) <= 4 {
		return "." + ext
	}
	return ".webm"
}
