package repository

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

func TestNewMemStorage(t *testing.T) {
	storage := NewMemStorage()
	assert.NotNil(t, storage)
	assert.NotNil(t, storage.items)
}

func TestMemStorage_StoreAndGet(t *testing.T) {
	storage := NewMemStorage()
	ctx := context.Background()

	err := storage.Store(ctx, []models.Measurement{
		models.NewMeasurement("web-01", "cpu.load", 0.5),
		models.NewMeasurement("web-01", "status", "ok"),
	})
	require.NoError(t, err)

	m, err := storage.Get(ctx, "web-01", "cpu.load")
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Value)

	m, err = storage.Get(ctx, "web-01", "status")
	require.NoError(t, err)
	assert.Equal(t, "ok", m.Value)

	_, err = storage.Get(ctx, "web-02", "cpu.load")
	assert.ErrorIs(t, err, internalerrors.ErrMeasurementNotFound)
}

func TestMemStorage_LatestValueWins(t *testing.T) {
	storage := NewMemStorage()
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, []models.Measurement{models.NewMeasurement("h", "k", 1)}))
	require.NoError(t, storage.Store(ctx, []models.Measurement{models.NewMeasurement("h", "k", 2)}))

	m, err := storage.Get(ctx, "h", "k")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Value)

	list, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemStorage_ListOrdered(t *testing.T) {
	storage := NewMemStorage()
	ctx := context.Background()

	require.NoError(t, storage.Store(ctx, []models.Measurement{
		models.NewMeasurement("b", "x", 1),
		models.NewMeasurement("a", "z", 2),
		models.NewMeasurement("a", "y", 3),
	}))

	list, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Host)
	assert.Equal(t, "y", list[0].Key)
	assert.Equal(t, "z", list[1].Key)
	assert.Equal(t, "b", list[2].Host)
}

func TestMemStorage_Concurrent(t *testing.T) {
	storage := NewMemStorage()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			storage.Store(ctx, []models.Measurement{models.NewMeasurement("h", "k", i)})
			storage.List(ctx)
		}(i)
	}
	wg.Wait()

	list, err := storage.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemStorage_PingAndClose(t *testing.T) {
	storage := NewMemStorage()
	assert.NoError(t, storage.Ping(context.Background()))
	assert.NoError(t, storage.Close())
}

func TestMemStorage_ValueString(t *testing.T) {
	assert.Equal(t, "", valueString(nil))
	assert.Equal(t, "ok", valueString("ok"))
	assert.Equal(t, "1.5", valueString(1.5))
	assert.Equal(t, "42", valueString(json.Number("42")))
	assert.Equal(t, "7", valueString(int64(7)))
}

func TestMemStorage_NullInt(t *testing.T) {
	assert.False(t, nullInt(nil).Valid)
	v := int64(3)
	assert.Equal(t, int64(3), nullInt(&v).Int64)
	assert.True(t, nullInt(&v).Valid)
}
