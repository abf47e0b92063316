package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/packkeeper/internal/common"
)

type memObject struct {
	data []byte
	opts PutOptions
}

// MemoryStore keeps objects in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memObject
}

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{bucket: bucket, objects: make(map[string]memObject)}
}

func (m *MemoryStore) Locator(key string) string {
	return fmt.Sprintf("memory://%s/%s", m.bucket, key)
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	opts.Metadata = maps.Clone(opts.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, opts: opts}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, common.ErrorNotFound)
	}

	return &Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		Size:        int64(len(obj.data)),
		ContentType: obj.opts.ContentType,
		Metadata:    maps.Clone(obj.opts.Metadata),
	}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("presign %s: %w", key, common.ErrorNotFound)
	}
	q := url.Values{"expires": {time.Now().Add(ttl).UTC().Format(time.RFC3339)}}
	return m.Locator(key) + "?" + q.Encode(), nil
}

// Keys lists stored keys. Order is unspecified.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.objects))
	for k := range m.objects {
		out = append(out, k)
	}
	return out
}

// Options returns the PutOptions an object was stored with.
func (m *MemoryStore) Options(key string) (PutOptions, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.opts, ok
}
