// Package repository stores the measurements received by the trapper emulator.
package repository

import (
	"context"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

// Repository keeps the latest measurement per host and item key.
type Repository interface {
	// Store saves the measurements, replacing earlier values of the same item.
	Store(ctx context.Context, measurements []models.Measurement) error

	// Get returns the latest measurement of an item.
	Get(ctx context.Context, host, key string) (models.Measurement, error)

	// List returns all stored measurements ordered by host and key.
	List(ctx context.Context) ([]models.Measurement, error)

	// Ping checks the storage is reachable.
	Ping(ctx context.Context) error

	// Close releases the storage.
	Close() error
}
