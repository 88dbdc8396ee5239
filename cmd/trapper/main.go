package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Schera-ole/zabbix-sender/internal/audit"
	"github.com/Schera-ole/zabbix-sender/internal/config"
	"github.com/Schera-ole/zabbix-sender/internal/handler"
	"github.com/Schera-ole/zabbix-sender/internal/migration"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/repository"
	"github.com/Schera-ole/zabbix-sender/internal/service"
	"github.com/Schera-ole/zabbix-sender/internal/trapper"
)

func openRepository(ctx context.Context, cfg *config.TrapperConfig, logger *zap.SugaredLogger) (repository.Repository, error) {
	if cfg.DatabaseDSN == "" {
		return repository.NewMemStorage(), nil
	}
	if err := migration.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsURL, logger); err != nil {
		return nil, err
	}
	return repository.NewDBStorage(cfg.DatabaseDSN)
}

func startAudit(ctx context.Context, cfg *config.TrapperConfig, logger *zap.SugaredLogger, wg *sync.WaitGroup) (audit.AuditLogger, func()) {
	var subs []chan<- models.AuditEvent
	if cfg.AuditFile != "" {
		events := make(chan models.AuditEvent, 100)
		subs = append(subs, events)
		wg.Add(1)
		go func() {
			defer wg.Done()
			audit.FileSubscriber(events, cfg.AuditFile, logger)
		}()
	}
	if cfg.AuditURL != "" {
		events := make(chan models.AuditEvent, 100)
		subs = append(subs, events)
		wg.Add(1)
		go func() {
			defer wg.Done()
			audit.URLSubscriber(ctx, events, cfg.AuditURL, &http.Client{Timeout: 5 * time.Second}, logger)
		}()
	}
	if len(subs) == 0 {
		return audit.Nop{}, func() {}
	}

	source := make(chan models.AuditEvent, 100)
	go audit.Broadcaster(source, logger, subs...)
	return audit.NewAuditLogger(source, logger), func() { close(source) }
}

func main() {
	cfg, err := config.NewTrapperConfig(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to parse configuration: ", err)
	}

	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalw("failed to open storage", "error", err)
	}
	defer storage.Close()

	var auditWG sync.WaitGroup
	auditLogger, closeAudit := startAudit(ctx, cfg, logger, &auditWG)

	trapperService := service.NewTrapperService(storage, auditLogger)
	_, isMemStorage := storage.(*repository.MemStorage)
	if isMemStorage && cfg.Restore {
		if err := trapperService.RestoreMeasurements(ctx, cfg.FileStoragePath, logger); err != nil {
			logger.Errorw("failed to restore measurements", "error", err)
		}
	}

	var acceptor handler.TrapperService = trapperService
	var background sync.WaitGroup
	if isMemStorage && cfg.StoreInterval == 0 {
		acceptor = service.SyncSaver{TrapperService: trapperService, Path: cfg.FileStoragePath, Logger: logger}
	} else if isMemStorage {
		background.Add(1)
		go func() {
			defer background.Done()
			ticker := time.NewTicker(time.Duration(cfg.StoreInterval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := trapperService.SaveMeasurements(ctx, cfg.FileStoragePath); err != nil {
						logger.Warnf("couldn't save to file %s", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	trapperServer := trapper.NewServer(cfg.TrapperAddress, acceptor, logger)
	if err := trapperServer.Listen(); err != nil {
		logger.Fatalw("failed to start trapper", "error", err)
	}
	background.Add(1)
	go func() {
		defer background.Done()
		if err := trapperServer.Serve(ctx); err != nil {
			logger.Errorw("trapper stopped", "error", err)
			stop()
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: handler.Router(acceptor, logger),
	}
	go func() {
		logger.Infow("http listening", "address", cfg.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("http shutdown", "error", err)
	}
	background.Wait()
	closeAudit()
	auditWG.Wait()

	if isMemStorage {
		if err := trapperService.SaveMeasurements(context.Background(), cfg.FileStoragePath); err != nil {
			logger.Warnf("couldn't save to file %s", err)
		}
	}
}
