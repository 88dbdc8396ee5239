// Package handler exposes the measurements received by the trapper emulator over HTTP.
package handler

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	middlewareinternal "github.com/Schera-ole/zabbix-sender/internal/middleware"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/repository"
	"github.com/Schera-ole/zabbix-sender/internal/response"
)

// TrapperService is what the HTTP API needs from the trapper service.
type TrapperService interface {
	Accept(ctx context.Context, request models.Request, remoteAddr string) (response.Result, error)
	Repository() repository.Repository
}

func Router(trapperService TrapperService, logger *zap.SugaredLogger) chi.Router {
	router := chi.NewRouter()
	router.Use(middlewareinternal.LoggingMiddleware(logger))
	router.Use(middlewareinternal.GzipMiddleware)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(15 * time.Second))
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		ListHandler(w, r, trapperService, logger)
	})
	router.Get("/value/{host}/{key}", func(w http.ResponseWriter, r *http.Request) {
		ValueHandler(w, r, trapperService)
	})
	router.Post("/sender", func(w http.ResponseWriter, r *http.Request) {
		SenderDataHandler(w, r, trapperService, logger)
	})
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		PingHandler(w, r, trapperService, logger)
	})
	return router
}

// ListHandler writes every stored measurement as a JSON array.
func ListHandler(w http.ResponseWriter, r *http.Request, trapperService TrapperService, logger *zap.SugaredLogger) {
	measurements, err := trapperService.Repository().List(r.Context())
	if err != nil {
		logger.Errorw("error listing measurements", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if measurements == nil {
		measurements = []models.Measurement{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(measurements)
}

// ValueHandler writes the latest value of one item as plain text.
func ValueHandler(w http.ResponseWriter, r *http.Request, trapperService TrapperService) {
	host := chi.URLParam(r, "host")
	key := chi.URLParam(r, "key")
	measurement, err := trapperService.Repository().Get(r.Context(), host, key)
	if err != nil {
		if errors.Is(err, internalerrors.ErrMeasurementNotFound) {
			http.Error(w, "Measurement not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%v", measurement.Value)
}

// SenderDataHandler accepts a sender data request as JSON, optionally gzip encoded.
func SenderDataHandler(w http.ResponseWriter, r *http.Request, trapperService TrapperService, logger *zap.SugaredLogger) {
	var reader io.Reader = r.Body

	if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
		gzipReader, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, "Failed to create gzip reader: "+err.Error(), http.StatusBadRequest)
			return
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	decoder := json.NewDecoder(reader)
	decoder.UseNumber()
	var request models.Request
	if err := decoder.Decode(&request); err != nil {
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}
	if request.Request != models.SenderDataRequest {
		http.Error(w, "Unsupported request", http.StatusBadRequest)
		return
	}

	remoteAddr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		remoteAddr = host
	}
	result, err := trapperService.Accept(r.Context(), request, remoteAddr)
	if err != nil {
		logger.Errorw("error accepting sender data", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response.Success(result))
}

func PingHandler(w http.ResponseWriter, r *http.Request, trapperService TrapperService, logger *zap.SugaredLogger) {
	if err := trapperService.Repository().Ping(r.Context()); err != nil {
		logger.Errorw("storage ping failed", "error", err)
		http.Error(w, "Failed to connect to storage: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
