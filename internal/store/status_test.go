package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySetGet(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", Status{Text: "Loaded 3 pages from 1 PDF files", Pages: 3, Files: 1}))
	st, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, st.Pages)
	assert.Equal(t, "Loaded 3 pages from 1 PDF files", st.Text)
	assert.NoError(t, s.Close())
}

func TestNewRedisStatusRejectsBadURL(t *testing.T) {
	_, err := NewRedisStatus("not a url")
	assert.Error(t, err)
}
