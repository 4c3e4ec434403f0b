package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nutrisha-ai/nutrisha/pkg/domain/interfaces"
)

// Memory is an in-process BlobStore for development and tests
type Memory struct {
	mu            sync.RWMutex
	defaultBucket string
	objects       map[Object][]byte
}

var _ interfaces.BlobStore = &Memory{}

func NewMemory(defaultBucket string) *Memory {
	return &Memory{
		defaultBucket: defaultBucket,
		objects:       make(map[Object][]byte),
	}
}

// Put stores data under locator, resolved the same way Download resolves it
func (m *Memory) Put(locator, container string, data []byte) error {
	obj, err := ParseLocator(locator, container, m.defaultBucket)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj] = bytes.Clone(data)
	return nil
}

func (m *Memory) Download(ctx context.Context, locator, container string) (io.ReadCloser, error) {
	obj, err := ParseLocator(locator, container, m.defaultBucket)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[obj]
	if !ok {
		return nil, goerr.Wrap(ErrObjectNotFound, "object does not exist",
			goerr.V("bucket", obj.Bucket), goerr.V("object", obj.Name))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
