// Package audit records which items the trapper emulator accepted and from whom.
//
// Events are published on a channel and fanned out to file and HTTP subscribers.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

// AuditLogger is an interface for logging audit events.
type AuditLogger interface {
	// Log publishes an event for the items received from ipAddress.
	Log(items []string, ipAddress string)
}

type auditLogger struct {
	eventChan chan<- models.AuditEvent
	logger    *zap.SugaredLogger
}

// NewAuditLogger creates a new AuditLogger that sends events to the provided channel.
func NewAuditLogger(eventChan chan<- models.AuditEvent, logger *zap.SugaredLogger) AuditLogger {
	return &auditLogger{
		eventChan: eventChan,
		logger:    logger,
	}
}

// Log never blocks; events are dropped when the channel is full.
func (a *auditLogger) Log(items []string, ipAddress string) {
	event := models.AuditEvent{
		TS:        time.Now().Format(time.RFC3339),
		Items:     items,
		IPAddress: ipAddress,
	}

	select {
	case a.eventChan <- event:
	default:
		a.logger.Warn("audit: dropped event, channel is full")
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Log(items []string, ipAddress string) {}

// Broadcaster distributes audit events to multiple subscriber channels.
//
// Subscribers that are not ready lose the event. Subscriber channels are
// closed once source is drained.
func Broadcaster(source <-chan models.AuditEvent, logger *zap.SugaredLogger, subs ...chan<- models.AuditEvent) {
	defer func() {
		for _, subChan := range subs {
			close(subChan)
		}
	}()
	for evt := range source {
		for _, subChan := range subs {
			select {
			case subChan <- evt:
			default:
				logger.Warn("audit: dropped event for blocked subscriber")
			}
		}
	}
}

// FileSubscriber appends audit events to path as JSON lines.
func FileSubscriber(events <-chan models.AuditEvent, path string, logger *zap.SugaredLogger) {
	for evt := range events {
		if err := appendEvent(path, evt); err != nil {
			logger.Errorw("audit: error writing event", "file", path, "error", err)
		}
	}
}

func appendEvent(path string, evt models.AuditEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error opening file: %w", err)
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// URLSubscriber posts audit events to url.
func URLSubscriber(ctx context.Context, events <-chan models.AuditEvent, url string, client *http.Client, logger *zap.SugaredLogger) {
	for evt := range events {
		if err := postEvent(ctx, client, url, evt); err != nil {
			logger.Errorw("audit: error posting event", "url", url, "error", err)
		}
	}
}

func postEvent(ctx context.Context, client *http.Client, url string, evt models.AuditEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("error encoding event: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
