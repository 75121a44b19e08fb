package filestore

import (
	"bytes"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// Resolver turns a file reference into bytes over one transport.
type Resolver interface {
	Get(ctx context.Context, fileRef string, dst io.Writer) error
	Type() string
}

// FileStore is what the extraction worker sees: one Resolve call, with the
// transport fallback hidden behind it.
type FileStore interface {
	Resolve(ctx context.Context, fileRef string) ([]byte, error)
}

// Manager tries its resolvers in registration order. The object-store copy is
// preferred; the file-service direct download covers references the store
// cannot serve.
type Manager struct {
	resolvers map[int]Resolver // keep them in the order of the registration
}

var _ FileStore = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{
		resolvers: map[int]Resolver{},
	}
}

func (m *Manager) Register(resolver Resolver) *Manager {
	m.resolvers[len(m.resolvers)] = resolver
	return m
}

func (m *Manager) Resolve(ctx context.Context, fileRef string) ([]byte, error) {
	for i := 0; i < len(m.resolvers); i++ {
		resolver := m.resolvers[i]

		zap.S().Named("filestore").Debugw("resolving file", "file_ref", fileRef, "resolver_type", resolver.Type())

		var buf bytes.Buffer
		if err := resolver.Get(ctx, fileRef, &buf); err != nil {
			zap.S().Named("filestore").Warnw("failed to resolve file", "error", err, "file_ref", fileRef, "resolver_type", resolver.Type())
			continue
		}

		return buf.Bytes(), nil
	}

	return nil, errors.New("failed to resolve file. All resolvers failed")
}
