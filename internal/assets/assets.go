// Package assets loads the WASM runtime bundles the harnesses boot from.
// The base is either a local directory or an http(s) base URL; remote
// bundles are cached on disk and fetched at most once per name. Bundles may
// be zstd-compressed (a ".zst" sibling is tried transparently).
//
// All loading happens during unit bootstrap, before sandbox lockdown
// disables networking.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/puzpuzpuz/xsync/v3"
)

// Well-known bundle names, relative to the assets base.
const (
	PythonRuntime  = "python/python.wasm"
	OCamlToolchain = "ocaml/toolchain.wasm"
)

// ErrNotFound is returned when a bundle exists neither plain nor
// zstd-compressed under the base.
var ErrNotFound = errors.New("asset not found")

type Store struct {
	base     string
	remote   bool
	cacheDir string
	client   *http.Client
	locks    *xsync.MapOf[string, *sync.Mutex]
}

// NewStore creates a store over the given base. A base starting with
// http:// or https:// is remote and uses cacheDir for downloaded bundles;
// anything else is treated as a local directory.
func NewStore(base, cacheDir string) (*Store, error) {
	remote := strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://")
	if remote {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create asset cache directory: %w", err)
		}
	}
	return &Store{
		base:     strings.TrimRight(base, "/"),
		remote:   remote,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 2 * time.Minute},
		locks:    xsync.NewMapOf[string, *sync.Mutex](),
	}, nil
}

// Load returns the decompressed bytes of the named bundle.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if !s.remote {
		return s.loadLocal(name)
	}

	lock, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	lock.Lock()
	defer lock.Unlock()

	cached := filepath.Join(s.cacheDir, strings.ReplaceAll(name, "/", "_"))
	if data, err := os.ReadFile(cached); err == nil {
		return data, nil
	}

	data, err := s.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	// tmp-then-rename so a crashed download never poisons the cache
	tmp := cached + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write asset cache file: %w", err)
	}
	if err := os.Rename(tmp, cached); err != nil {
		return nil, fmt.Errorf("failed to move asset into cache: %w", err)
	}
	return data, nil
}

func (s *Store) loadLocal(name string) ([]byte, error) {
	plain := filepath.Join(s.base, filepath.FromSlash(name))
	if data, err := os.ReadFile(plain); err == nil {
		return data, nil
	}
	data, err := os.ReadFile(plain + ".zst")
	if err != nil {
		return nil, fmt.Errorf("%w: %s under %s", ErrNotFound, name, s.base)
	}
	return decompress(data)
}

func (s *Store) fetch(ctx context.Context, name string) ([]byte, error) {
	for _, suffix := range []string{"", ".zst"} {
		url := s.base + "/" + path.Clean(name) + suffix
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download asset %s: %w", name, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read asset %s: %w", name, err)
		}
		if resp.StatusCode == http.StatusNotFound {
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d downloading asset %s", resp.StatusCode, name)
		}
		if suffix == ".zst" || resp.Header.Get("Content-Type") == "application/zstd" {
			return decompress(body)
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: %s under %s", ErrNotFound, name, s.base)
}

func decompress(data []byte) ([]byte, error) {
	d, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer d.Close()
	out, err := d.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress asset: %w", err)
	}
	return out, nil
}
