// Package service provides the business logic of the trapper emulator.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Schera-ole/zabbix-sender/internal/audit"
	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/repository"
	"github.com/Schera-ole/zabbix-sender/internal/response"
)

// TrapperService accepts sender data requests and stores their measurements.
type TrapperService struct {
	repository repository.Repository
	audit      audit.AuditLogger
	now        func() time.Time
}

// NewTrapperService creates a service over repo. A nil auditLogger disables auditing.
func NewTrapperService(repo repository.Repository, auditLogger audit.AuditLogger) *TrapperService {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	return &TrapperService{repository: repo, audit: auditLogger, now: time.Now}
}

// Repository returns the underlying storage.
func (ts *TrapperService) Repository() repository.Repository {
	return ts.repository
}

// Validate reports whether a measurement can be stored.
func Validate(m models.Measurement) error {
	if m.Host == "" {
		return fmt.Errorf("%w: empty host", internalerrors.ErrInvalidMeasurement)
	}
	if m.Key == "" {
		return fmt.Errorf("%w: empty key", internalerrors.ErrInvalidMeasurement)
	}
	return nil
}

// Accept stores the valid measurements of a request and reports the counts
// the way a Zabbix trapper does.
func (ts *TrapperService) Accept(ctx context.Context, request models.Request, remoteAddr string) (response.Result, error) {
	start := ts.now()

	accepted := make([]models.Measurement, 0, len(request.Data))
	items := make([]string, 0, len(request.Data))
	for _, m := range request.Data {
		if Validate(m) != nil {
			continue
		}
		if m.Clock == nil && request.Clock != nil {
			m.Clock = request.Clock
			m.NS = request.NS
		}
		accepted = append(accepted, m)
		items = append(items, m.Host+":"+m.Key)
	}

	if len(accepted) > 0 {
		if err := ts.repository.Store(ctx, accepted); err != nil {
			return response.Result{}, err
		}
		ts.audit.Log(items, remoteAddr)
	}

	elapsed := ts.now().Sub(start)
	return response.Result{
		Processed: uint64(len(accepted)),
		Failed:    uint64(len(request.Data) - len(accepted)),
		Total:     uint64(len(request.Data)),
		Time:      decimal.New(elapsed.Nanoseconds(), -9),
	}, nil
}

// SyncSaver saves all measurements to Path after every accepted request.
type SyncSaver struct {
	*TrapperService
	Path   string
	Logger *zap.SugaredLogger
}

func (s SyncSaver) Accept(ctx context.Context, request models.Request, remoteAddr string) (response.Result, error) {
	result, err := s.TrapperService.Accept(ctx, request, remoteAddr)
	if err == nil {
		if err := s.SaveMeasurements(ctx, s.Path); err != nil {
			s.Logger.Warnf("couldn't save to file %s", err)
		}
	}
	return result, err
}

// SaveMeasurements writes all stored measurements to fname as JSON.
func (ts *TrapperService) SaveMeasurements(ctx context.Context, fname string) error {
	measurements, err := ts.repository.List(ctx)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}
	file, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(measurements)
}

// RestoreMeasurements loads measurements saved by SaveMeasurements.
//
// A missing file is not an error.
func (ts *TrapperService) RestoreMeasurements(ctx context.Context, fname string, logger *zap.SugaredLogger) error {
	file, err := os.Open(fname)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Infof("storage file not exists %s", fname)
			return nil
		}
		return fmt.Errorf("error while opening file to restore: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	decoder.UseNumber()
	var measurements []models.Measurement
	if err := decoder.Decode(&measurements); err != nil {
		return fmt.Errorf("error while decoding file store: %w", err)
	}

	logger.Infof("restored %d measurements from %s", len(measurements), fname)
	return ts.repository.Store(ctx, measurements)
}
