package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/erp/rentledger/internal/application/ledger"
)

var _ ledger.ReceiptStorage = (*MemoryReceiptStorage)(nil)

// MemoryReceiptStorage keeps receipts in memory. It backs local development
// and handler tests.
type MemoryReceiptStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// Object is a stored receipt
type Object struct {
	ContentType string
	Data        []byte
}

func NewMemoryReceiptStorage() *MemoryReceiptStorage {
	return &MemoryReceiptStorage{
		BaseURL: "http://receipts.local",
		objects: make(map[string]Object),
	}
}

func (s *MemoryReceiptStorage) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read receipt body: %w", err)
	}
	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: data}
	s.mu.Unlock()
	return nil
}

// PresignGet returns a fake link. Unknown keys are an error so missing
// uploads surface in tests.
func (s *MemoryReceiptStorage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("%s/%s?expires_in=%d", s.BaseURL, url.PathEscape(key), int(ttl.Seconds())), nil
}

// Get returns a stored object
func (s *MemoryReceiptStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}
