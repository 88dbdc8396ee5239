// Package sender submits measurements to a Zabbix server or proxy trapper.
//
// Every exchange opens its own connection, writes one packet, reads one reply
// and closes the connection. A Sender keeps no state between exchanges and can
// be shared between goroutines.
package sender

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
	"github.com/Schera-ole/zabbix-sender/internal/protocol"
	"github.com/Schera-ole/zabbix-sender/internal/response"
)

// DefaultPort is the trapper port of a Zabbix server.
const DefaultPort = "10051"

// Dialer opens the connection for one exchange. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Sender sends measurement collections or prepared packets to one server.
type Sender struct {
	address        string
	useCompression bool
	dialer         Dialer
	logger         *zap.SugaredLogger
}

// Option configures a Sender.
type Option func(*Sender)

// WithCompression sets whether Send compresses the request. Defaults to true.
func WithCompression(useCompression bool) Option {
	return func(s *Sender) {
		s.useCompression = useCompression
	}
}

// WithDialer replaces the dialer used to open connections.
func WithDialer(dialer Dialer) Option {
	return func(s *Sender) {
		s.dialer = dialer
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

// NewSender creates a Sender for the server at address.
//
// The address is host or host:port; DefaultPort is used when the port is missing.
func NewSender(address string, opts ...Option) *Sender {
	s := &Sender{
		address:        withDefaultPort(address),
		useCompression: true,
		dialer:         &net.Dialer{},
		logger:         zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withDefaultPort(address string) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	return net.JoinHostPort(strings.Trim(address, "[]"), DefaultPort)
}

// Address returns the host:port the sender connects to.
func (s *Sender) Address() string {
	return s.address
}

// Send encodes the measurements into a packet and sends it.
func (s *Sender) Send(ctx context.Context, measurements *models.Measurements) (response.Result, error) {
	request, err := measurements.Bytes()
	if err != nil {
		return response.Result{}, err
	}
	packet := protocol.Encode(request, s.useCompression)
	s.logger.Debugw("created packet from measurements",
		"measurements", measurements.Len(),
		"compression", s.useCompression,
	)
	return s.SendPacket(ctx, packet)
}

// SendPacket sends a packet that already carries the protocol header and
// returns the parsed server acknowledgement.
//
// The connection is closed before SendPacket returns, also when ctx is
// cancelled while the exchange is blocked on the network.
func (s *Sender) SendPacket(ctx context.Context, packet []byte) (response.Result, error) {
	conn, err := s.dialer.DialContext(ctx, "tcp", s.address)
	if err != nil {
		return response.Result{}, fmt.Errorf("%w: error connecting to %s: %w", internalerrors.ErrConnection, s.address, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	reply, err := exchange(conn, packet)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return response.Result{}, fmt.Errorf("%w: exchange with %s interrupted: %w", internalerrors.ErrConnection, s.address, ctxErr)
		}
		return response.Result{}, err
	}

	s.logger.Infow("packet sent",
		"address", s.address,
		"sent_bytes", len(packet),
		"received_bytes", reply.DataLength,
		"flags", reply.Flags,
	)

	payload, err := protocol.ParsePacket(reply)
	if err != nil {
		return response.Result{}, err
	}
	s.logger.Debugw("parsed response payload", "payload", payload)

	return response.Parse(payload)
}

// exchange writes the packet and waits for the reply packet.
func exchange(conn net.Conn, packet []byte) (protocol.Packet, error) {
	w := bufio.NewWriterSize(conn, len(packet))
	if _, err := w.Write(packet); err != nil {
		return protocol.Packet{}, fmt.Errorf("%w: error writing packet: %w", internalerrors.ErrConnection, err)
	}
	if err := w.Flush(); err != nil {
		return protocol.Packet{}, fmt.Errorf("%w: error flushing packet: %w", internalerrors.ErrConnection, err)
	}

	return protocol.ReadPacket(bufio.NewReader(conn))
}
