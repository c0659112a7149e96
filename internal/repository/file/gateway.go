package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

var _ record.Gateway = (*Gateway)(nil)

const ext = ".json"

// Gateway keeps one JSON document per record under <dir>/<kind>/<id>.json.
type Gateway struct {
	dir string
	mu  sync.RWMutex
}

func NewGateway(dir string) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Gateway{dir: dir}, nil
}

func (g *Gateway) path(kind record.Kind, id string) string {
	return filepath.Join(g.dir, string(kind), url.PathEscape(id)+ext)
}

func (g *Gateway) Get(ctx context.Context, kind record.Kind, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "get", Kind: string(kind), ID: id, Err: err}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	data, err := os.ReadFile(g.path(kind, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s/%s: %w", kind, id, domain.ErrNotFound)
		}
		return nil, &domain.StorageError{Op: "get", Kind: string(kind), ID: id, Err: err}
	}
	return data, nil
}

// Put writes to a temp file and renames it so readers never see a partial record.
func (g *Gateway) Put(ctx context.Context, kind record.Kind, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	dst := g.path(kind, id)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return &domain.StorageError{Op: "put", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) Delete(ctx context.Context, kind record.Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return &domain.StorageError{Op: "delete", Kind: string(kind), ID: id, Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := os.Remove(g.path(kind, id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &domain.StorageError{Op: "delete", Kind: string(kind), ID: id, Err: err}
	}
	return nil
}

func (g *Gateway) ListAll(ctx context.Context, kind record.Kind) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(g.dir, string(kind)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &domain.StorageError{Op: "list", Kind: string(kind), Err: err}
	}

	out := make([]record.Record, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ext))
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(g.dir, string(kind), name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, &domain.StorageError{Op: "list", Kind: string(kind), ID: id, Err: err}
		}
		out = append(out, record.Record{ID: id, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
