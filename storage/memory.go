package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and local experiments.
// It honors the overwrite contract and records content types.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject

	// PutHook, when set, runs before every Put and may reject it. Tests use
	// it to inject publish failures or slow stores.
	PutHook func(ctx context.Context, key string) error

	baseURL string
}

type memoryObject struct {
	data         []byte
	contentType  string
	lastModified time.Time
}

// NewMemory creates an empty MemoryStore serving URLs under baseURL.
func NewMemory(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "https://cdn.test"
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Put stores data under key, replacing any previous content.
func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.PutHook != nil {
		if err := s.PutHook(ctx, key); err != nil {
			return "", err
		}
	}

	key = strings.TrimPrefix(key, "/")
	s.mu.Lock()
	s.objects[key] = memoryObject{
		data:         append([]byte(nil), data...),
		contentType:  contentType,
		lastModified: time.Now(),
	}
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

// Delete removes the object under key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key = strings.TrimPrefix(key, "/")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return fmt.Errorf("object %s not found", key)
	}
	delete(s.objects, key)
	return nil
}

// List returns up to maxKeys objects under prefix in key order.
func (s *MemoryStore) List(ctx context.Context, prefix string, maxKeys int) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")

	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []ObjectInfo
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, ObjectInfo{
				Key:          key,
				Size:         int64(len(obj.data)),
				LastModified: obj.lastModified,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	if maxKeys > 0 && len(infos) > maxKeys {
		infos = infos[:maxKeys]
	}
	return infos, nil
}

// Get returns the stored bytes and content type for key.
func (s *MemoryStore) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[strings.TrimPrefix(key, "/")]
	if !ok {
		return nil, "", false
	}
	return obj.data, obj.contentType, true
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
