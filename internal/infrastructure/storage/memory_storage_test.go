package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReceiptStorage(t *testing.T) {
	s := NewMemoryReceiptStorage()
	ctx := context.Background()

	_, err := s.PresignGet(ctx, "missing", time.Minute)
	assert.Error(t, err)

	require.NoError(t, s.Upload(ctx, "receipts/a/b/r.png", "image/png", strings.NewReader("png"), 3))
	obj, ok := s.Get("receipts/a/b/r.png")
	require.True(t, ok)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, "png", string(obj.Data))

	url, err := s.PresignGet(ctx, "receipts/a/b/r.png", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://receipts.local/receipts%2Fa%2Fb%2Fr.png?expires_in=900", url)

	assert.Error(t, s.Upload(ctx, "", "", strings.NewReader(""), 0))
}
