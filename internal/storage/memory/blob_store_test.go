package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutAndGetObject(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	uri, err := s.PutObject(context.Background(), "example_com_x.zip", "application/zip", []byte("zipbytes"))
	require.NoError(t, err)
	require.Equal(t, "memory://example_com_x.zip", uri)

	data, ok := s.GetObject("example_com_x.zip")
	require.True(t, ok)
	require.Equal(t, []byte("zipbytes"), data)

	_, ok = s.GetObject("missing.zip")
	require.False(t, ok)
}

func TestPutObjectRequiresName(t *testing.T) {
	t.Parallel()

	s := NewBlobStore()
	_, err := s.PutObject(context.Background(), "", "application/zip", nil)
	require.Error(t, err)
}
