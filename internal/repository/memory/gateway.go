package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
)

var _ record.Gateway = (*Gateway)(nil)

type Gateway struct {
	mu   sync.RWMutex
	data map[record.Kind]map[string][]byte
}

func NewGateway() *Gateway {
	return &Gateway{data: make(map[record.Kind]map[string][]byte)}
}

func (g *Gateway) Get(_ context.Context, kind record.Kind, id string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.data[kind][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, domain.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (g *Gateway) Put(_ context.Context, kind record.Kind, id string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.data[kind]
	if !ok {
		m = make(map[string][]byte)
		g.data[kind] = m
	}
	m[id] = append([]byte(nil), data...)
	return nil
}

func (g *Gateway) Delete(_ context.Context, kind record.Kind, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.data[kind], id)
	return nil
}

func (g *Gateway) ListAll(_ context.Context, kind record.Kind) ([]record.Record, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]record.Record, 0, len(g.data[kind]))
	for id, v := range g.data[kind] {
		out = append(out, record.Record{ID: id, Data: append([]byte(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
