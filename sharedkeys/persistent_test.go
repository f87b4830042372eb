package sharedkeys

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu   sync.Mutex
	data []byte
	has  bool
}

func (m *memStorage) Read(context.Context) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data, m.has, nil
}

func (m *memStorage) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = append([]byte(nil), data...)
	m.has = true

	return nil
}

func TestEncodeDecodeStringArray_RoundTrip(t *testing.T) {
	in := []string{"alpha", "beta", "gamma", "x"}

	data := encodeStringArray(in)

	out, ok := decodeStringArray(data)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestEncodeDecodeStringArray_Empty(t *testing.T) {
	data := encodeStringArray(nil)

	out, ok := decodeStringArray(data)
	require.True(t, ok)
	assert.Empty(t, out)
}

func TestPersistentSharedKeys_SaveThenRefreshInNewInstance(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}

	writer := NewPersistent(storage)
	require.NoError(t, writer.WithTransaction(ctx, func() error {
		_, err := writer.EncodeAndAdd("color")
		return err
	}))
	require.NoError(t, writer.Save(ctx))

	reader := NewPersistent(storage)
	require.NoError(t, reader.Refresh(ctx))

	i, ok := reader.Encode("color")
	require.True(t, ok)
	assert.Equal(t, int32(0), i)
}

func TestPersistentSharedKeys_SaveIsNoOpWithoutNewKeys(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}
	p := NewPersistent(storage)

	require.NoError(t, p.Save(ctx))
	assert.False(t, storage.has)
}

func TestPersistentSharedKeys_RevertOnTransactionError(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}
	p := NewPersistent(storage)

	sentinel := assert.AnError
	err := p.WithTransaction(ctx, func() error {
		_, addErr := p.EncodeAndAdd("temp")
		require.NoError(t, addErr)
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, p.Count())
}

func TestPersistentSharedKeys_TransactionBeganAbsorbsOtherWriters(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}

	writerA := NewPersistent(storage)
	require.NoError(t, writerA.WithTransaction(ctx, func() error {
		_, err := writerA.EncodeAndAdd("from-a")
		return err
	}))
	require.NoError(t, writerA.Save(ctx))

	writerB := NewPersistent(storage)
	require.NoError(t, writerB.WithTransaction(ctx, func() error {
		_, err := writerB.EncodeAndAdd("from-b")
		return err
	}))
	require.NoError(t, writerB.Save(ctx))

	i, ok := writerB.Encode("from-a")
	require.True(t, ok)
	assert.Equal(t, int32(0), i)

	j, ok := writerB.Encode("from-b")
	require.True(t, ok)
	assert.Equal(t, int32(1), j)
}
