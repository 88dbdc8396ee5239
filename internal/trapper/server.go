// Package trapper emulates the trapper port of a Zabbix server.
//
// Each connection carries one request packet and receives one reply packet.
package trapper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/protocol"
	"github.com/Schera-ole/zabbix-sender/internal/response"
)

// DefaultTimeout bounds a single connection, like the server Timeout option.
const DefaultTimeout = 3 * time.Second

// Acceptor handles a decoded sender data request.
type Acceptor interface {
	Accept(ctx context.Context, request models.Request, remoteAddr string) (response.Result, error)
}

// Server accepts trapper connections.
type Server struct {
	address  string
	acceptor Acceptor
	logger   *zap.SugaredLogger
	timeout  time.Duration

	mu       sync.Mutex
	listener net.Listener
	conns    sync.WaitGroup
}

// NewServer creates a server that listens on address once Listen is called.
func NewServer(address string, acceptor Acceptor, logger *zap.SugaredLogger) *Server {
	return &Server{
		address:  address,
		acceptor: acceptor,
		logger:   logger,
		timeout:  DefaultTimeout,
	}
}

// Listen binds the listen address.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("error listening on %s: %w", s.address, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done, then waits for open
// connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		listener.Close()
	})
	defer stop()

	s.logger.Infow("trapper listening", "address", listener.Addr().String())
	for {
		conn, err := listener.Accept()
		if err != nil {
			s.conns.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error accepting connection: %w", err)
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remoteAddr := conn.RemoteAddr().String()
	if s.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
			s.logger.Warnw("error setting deadline", "remote", remoteAddr, "error", err)
			return
		}
	}

	packet, err := protocol.ReadPacket(conn)
	if err != nil {
		s.logger.Warnw("error reading packet", "remote", remoteAddr, "error", err)
		return
	}

	payload, err := s.process(ctx, packet, remoteAddr)
	if err != nil {
		s.logger.Warnw("request rejected", "remote", remoteAddr, "error", err)
		payload = response.Failure(err.Error())
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Errorw("error encoding reply", "remote", remoteAddr, "error", err)
		return
	}
	if _, err := conn.Write(protocol.Encode(data, packet.Compressed())); err != nil {
		s.logger.Warnw("error writing reply", "remote", remoteAddr, "error", err)
		return
	}
	s.logger.Debugw("request handled", "remote", remoteAddr, "reply", string(data))
}

var errUnsupportedRequest = errors.New("unsupported request")

func (s *Server) process(ctx context.Context, packet protocol.Packet, remoteAddr string) (map[string]any, error) {
	data, err := packet.Payload()
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var request models.Request
	if err := decoder.Decode(&request); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if request.Request != models.SenderDataRequest {
		return nil, fmt.Errorf("%w %q", errUnsupportedRequest, request.Request)
	}

	result, err := s.acceptor.Accept(ctx, request, remoteAddr)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("sender data accepted", "remote", remoteAddr, "info", result.Info())
	return response.Success(result), nil
}
