package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"local":  NewLocalStore(t.TempDir()),
		"memory": NewMemoryStore(),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, "client0/0/a.nii", []byte("alpha")))
			require.NoError(t, s.Put(ctx, "client0/1/b.nii", []byte("beta")))
			require.NoError(t, s.Put(ctx, "client1/0/c.nii", nil))

			w, err := s.Create(ctx, "client1/class0.npy")
			require.NoError(t, err)
			_, err = w.Write([]byte("stacked"))
			require.NoError(t, err)
			require.NoError(t, w.Close())
			assert.Error(t, w.Close())

			names, err := s.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"client0/0/a.nii", "client0/1/b.nii", "client1/0/c.nii", "client1/class0.npy"}, names)

			names, err = s.List(ctx, "client0/")
			require.NoError(t, err)
			assert.Len(t, names, 2)

			data, err := ReadAll(ctx, s, "client1/class0.npy")
			require.NoError(t, err)
			assert.Equal(t, "stacked", string(data))

			data, err = ReadAll(ctx, s, "client1/0/c.nii")
			require.NoError(t, err)
			assert.Empty(t, data)

			b, err := s.Open(ctx, "client0/0/a.nii")
			require.NoError(t, err)
			assert.Equal(t, int64(5), b.Size())
			buf := make([]byte, 3)
			n, err := b.ReadAt(ctx, buf, 2)
			require.NoError(t, err)
			assert.Equal(t, "pha", string(buf[:n]))
			require.NoError(t, b.Close())

			_, err = s.Open(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, "client0/0/a.nii"))
			require.NoError(t, s.Delete(ctx, "client0/0/a.nii"))

			require.NoError(t, RemoveAll(ctx, s, "client0"))
			names, err = s.List(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, []string{"client1/0/c.nii", "client1/class0.npy"}, names)

			require.NoError(t, RemoveAll(ctx, s, ""))
			names, err = s.List(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, names)
		})
	}
}

func TestStore_Abort(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			w, err := s.Create(ctx, "x/y.jpg")
			require.NoError(t, err)
			_, err = w.Write([]byte("partial"))
			require.NoError(t, err)
			require.NoError(t, w.Abort())

			_, err = s.Open(ctx, "x/y.jpg")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestCleanName(t *testing.T) {
	for _, ok := range []string{"a", "client0/1/x.nii", "a/./b"} {
		_, err := CleanName(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", ".", "..", "../x", "/abs", `a\b`} {
		_, err := CleanName(bad)
		assert.ErrorIs(t, err, ErrInvalidName, bad)
	}
}
