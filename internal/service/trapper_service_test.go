package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/repository"
)

type recordingAudit struct {
	mu    sync.Mutex
	items [][]string
	addrs []string
}

func (a *recordingAudit) Log(items []string, ipAddress string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.items = append(a.items, items)
	a.addrs = append(a.addrs, ipAddress)
}

type failingRepository struct {
	repository.Repository
	err error
}

func (r *failingRepository) Store(ctx context.Context, measurements []models.Measurement) error {
	return r.err
}

func TestAccept(t *testing.T) {
	storage := repository.NewMemStorage()
	auditLog := &recordingAudit{}
	service := NewTrapperService(storage, auditLog)

	start := time.Unix(100, 0)
	calls := 0
	service.now = func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(1500 * time.Microsecond)
	}

	clock := int64(1700000000)
	request := models.Request{
		Clock:   &clock,
		Request: models.SenderDataRequest,
		Data: []models.Measurement{
			models.NewMeasurement("web-01", "cpu.load", 0.5),
			models.NewMeasurement("", "cpu.load", 1),
			models.NewMeasurement("web-01", "", 1),
		},
	}

	result, err := service.Accept(context.Background(), request, "127.0.0.1:5000")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), result.Processed)
	assert.Equal(t, uint64(2), result.Failed)
	assert.Equal(t, uint64(3), result.Total)
	assert.True(t, decimal.RequireFromString("0.0015").Equal(result.Time), "got %s", result.Time)

	stored, err := storage.Get(context.Background(), "web-01", "cpu.load")
	require.NoError(t, err)
	require.NotNil(t, stored.Clock)
	assert.Equal(t, clock, *stored.Clock, "request clock applies to items without one")

	require.Len(t, auditLog.items, 1)
	assert.Equal(t, []string{"web-01:cpu.load"}, auditLog.items[0])
	assert.Equal(t, "127.0.0.1:5000", auditLog.addrs[0])
}

func TestAcceptEmptyRequest(t *testing.T) {
	auditLog := &recordingAudit{}
	service := NewTrapperService(repository.NewMemStorage(), auditLog)

	result, err := service.Accept(context.Background(), models.Request{Request: models.SenderDataRequest}, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.Total)
	assert.Empty(t, auditLog.items)
}

func TestAcceptStorageError(t *testing.T) {
	storeErr := errors.New("disk full")
	service := NewTrapperService(&failingRepository{err: storeErr}, nil)

	request := models.Request{Data: []models.Measurement{models.NewMeasurement("h", "k", 1)}}
	_, err := service.Accept(context.Background(), request, "")
	assert.ErrorIs(t, err, storeErr)
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop().Sugar()
	fname := filepath.Join(t.TempDir(), "nested", "measurements.json")

	source := NewTrapperService(repository.NewMemStorage(), nil)
	_, err := source.Accept(ctx, models.Request{Data: []models.Measurement{
		models.NewMeasurement("h", "k", "text"),
		models.NewMeasurementAt("h", "n", 12, time.Unix(5, 6)),
	}}, "")
	require.NoError(t, err)
	require.NoError(t, source.SaveMeasurements(ctx, fname))

	target := NewTrapperService(repository.NewMemStorage(), nil)
	require.NoError(t, target.RestoreMeasurements(ctx, fname, logger))

	list, err := target.Repository().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "text", list[0].Value)
	assert.Equal(t, "12", list[1].Value.(interface{ String() string }).String())
	require.NotNil(t, list[1].Clock)
	assert.Equal(t, int64(5), *list[1].Clock)
}

func TestSyncSaverSavesAfterAccept(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "measurements.json")
	saver := SyncSaver{
		TrapperService: NewTrapperService(repository.NewMemStorage(), nil),
		Path:           fname,
		Logger:         zap.NewNop().Sugar(),
	}

	result, err := saver.Accept(ctx, models.Request{Data: []models.Measurement{
		models.NewMeasurement("h", "k", "v"),
	}}, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Processed)

	restored := NewTrapperService(repository.NewMemStorage(), nil)
	require.NoError(t, restored.RestoreMeasurements(ctx, fname, zap.NewNop().Sugar()))
	m, err := restored.Repository().Get(ctx, "h", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", m.Value)
}

func TestSyncSaverSkipsSaveOnError(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "measurements.json")
	saver := SyncSaver{
		TrapperService: NewTrapperService(&failingRepository{err: errors.New("disk full")}, nil),
		Path:           fname,
		Logger:         zap.NewNop().Sugar(),
	}

	_, err := saver.Accept(context.Background(), models.Request{Data: []models.Measurement{
		models.NewMeasurement("h", "k", "v"),
	}}, "")
	require.Error(t, err)
	assert.NoFileExists(t, fname)
}

func TestRestoreMissingFile(t *testing.T) {
	service := NewTrapperService(repository.NewMemStorage(), nil)
	err := service.RestoreMeasurements(context.Background(), filepath.Join(t.TempDir(), "missing.json"), zap.NewNop().Sugar())
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(models.NewMeasurement("h", "k", nil)))
	assert.Error(t, Validate(models.NewMeasurement("", "k", 1)))
	assert.Error(t, Validate(models.NewMeasurement("h", "", 1)))
}
