package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Schera-ole/zabbix-sender/internal/agent"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/response"
	"github.com/Schera-ole/zabbix-sender/internal/sender"
)

// batchSender is the part of sender.Sender the workers need.
type batchSender interface {
	Send(ctx context.Context, measurements *models.Measurements) (response.Result, error)
}

func worker(ctx context.Context, s batchSender, jobs <-chan *models.Measurements, logger *zap.SugaredLogger) {
	for job := range jobs {
		result, err := s.Send(ctx, job)
		if err != nil {
			logger.Errorw("error sending measurements", "measurements", job.Len(), "error", err)
			continue
		}
		logger.Infow("measurements sent",
			"processed", result.Processed,
			"failed", result.Failed,
			"total", result.Total,
			"seconds_spent", result.Time.String(),
		)
	}
}

func poll(ctx context.Context, interval time.Duration, jobs chan<- *models.Measurements, collect func() ([]models.Measurement, error), logger *zap.SugaredLogger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		measurements, err := collect()
		if err != nil {
			logger.Warnw("error collecting measurements", "error", err)
		} else if len(measurements) > 0 {
			select {
			case jobs <- models.NewMeasurements(measurements...):
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	agentConfig, err := agent.NewAgentConfig(os.Args[1:])
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

	zabbixSender := sender.NewSender(
		agentConfig.Address,
		sender.WithCompression(agentConfig.Compression),
		sender.WithLogger(logger),
	)
	collector := agent.NewCollector(agentConfig.HostName)
	interval := time.Duration(agentConfig.PollInterval) * time.Second
	jobs := make(chan *models.Measurements, 20)

	var workers sync.WaitGroup
	for w := 1; w <= agentConfig.RateLimit; w++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			worker(ctx, zabbixSender, jobs, logger)
		}()
	}

	var pollers sync.WaitGroup
	pollers.Add(2)
	go func() {
		defer pollers.Done()
		poll(ctx, interval, jobs, func() ([]models.Measurement, error) {
			return collector.CollectRuntime(), nil
		}, logger)
	}()
	go func() {
		defer pollers.Done()
		poll(ctx, interval, jobs, collector.CollectSystem, logger)
	}()

	logger.Infow("agent started",
		"address", zabbixSender.Address(),
		"host", agentConfig.HostName,
		"poll_interval", interval,
		"workers", agentConfig.RateLimit,
	)

	<-ctx.Done()
	logger.Info("Shutting down...")
	pollers.Wait()
	close(jobs)
	workers.Wait()
}
