package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

type itemID struct {
	host string
	key  string
}

type MemStorage struct {
	mu    sync.RWMutex
	items map[itemID]models.Measurement
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		items: make(map[itemID]models.Measurement),
	}
}

func (ms *MemStorage) Store(ctx context.Context, measurements []models.Measurement) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, m := range measurements {
		ms.items[itemID{host: m.Host, key: m.Key}] = m
	}
	return nil
}

func (ms *MemStorage) Get(ctx context.Context, host, key string) (models.Measurement, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	m, exists := ms.items[itemID{host: host, key: key}]
	if !exists {
		return models.Measurement{}, fmt.Errorf("%w: %s %s", internalerrors.ErrMeasurementNotFound, host, key)
	}
	return m, nil
}

func (ms *MemStorage) List(ctx context.Context) ([]models.Measurement, error) {
	ms.mu.RLock()
	result := make([]models.Measurement, 0, len(ms.items))
	for _, m := range ms.items {
		result = append(result, m)
	}
	ms.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Host != result[j].Host {
			return result[i].Host < result[j].Host
		}
		return result[i].Key < result[j].Key
	})
	return result, nil
}

func (ms *MemStorage) Ping(ctx context.Context) error {
	return nil
}

func (ms *MemStorage) Close() error {
	return nil
}
