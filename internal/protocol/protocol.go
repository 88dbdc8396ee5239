// Package protocol implements the ZBXD wire format used by Zabbix trappers.
//
// A packet is a 13 byte little-endian header followed by the data:
//
//	offset  size  field
//	0       4     protocol tag "ZBXD"
//	4       1     flags (0x01 always, 0x02 when data is zlib compressed)
//	5       4     data length
//	9       4     reserved (uncompressed length when compressed, else 0)
//	13      N     data
package protocol

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"unicode/utf8"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
)

const (
	HeaderLen = 13

	FlagProtocol   byte = 0x01
	FlagCompressed byte = 0x02

	// MaxDataLength is the largest data or uncompressed length accepted
	// from a peer, the receive limit of a Zabbix server.
	MaxDataLength = 1 << 30
)

// Tag is the protocol tag every packet starts with.
var Tag = [4]byte{'Z', 'B', 'X', 'D'}

// Packet is a decoded packet with its header fields and raw data.
type Packet struct {
	Protocol   [4]byte
	Flags      byte
	DataLength uint32
	Reserved   uint32
	Data       []byte
}

// Compressed reports whether the data is zlib compressed.
func (p Packet) Compressed() bool {
	return p.Flags&FlagCompressed != 0
}

var zlibWriterPool = sync.Pool{
	New: func() interface{} {
		return zlib.NewWriter(io.Discard)
	},
}

// Encode wraps request into a packet, compressing it when useCompression is set.
func Encode(request []byte, useCompression bool) []byte {
	flags := FlagProtocol
	data := request
	reserved := uint32(0)
	if useCompression {
		flags |= FlagCompressed
		data = compress(request)
		reserved = uint32(len(request))
	}

	packet := make([]byte, HeaderLen, HeaderLen+len(data))
	copy(packet[0:4], Tag[:])
	packet[4] = flags
	binary.LittleEndian.PutUint32(packet[5:9], uint32(len(data)))
	binary.LittleEndian.PutUint32(packet[9:13], reserved)
	return append(packet, data...)
}

func compress(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlibWriterPool.Get().(*zlib.Writer)
	zw.Reset(&buf)
	defer zlibWriterPool.Put(zw)

	// Writes to a bytes.Buffer cannot fail.
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// DecodeHeader decodes the 13 byte packet header. Data is left empty.
func DecodeHeader(b []byte) (Packet, error) {
	if len(b) != HeaderLen {
		return Packet{}, fmt.Errorf("%w: header is %d bytes, want %d", internalerrors.ErrMalformedFrame, len(b), HeaderLen)
	}
	if !bytes.Equal(b[0:4], Tag[:]) {
		return Packet{}, fmt.Errorf("%w: unexpected protocol tag %q", internalerrors.ErrMalformedFrame, b[0:4])
	}
	var p Packet
	copy(p.Protocol[:], b[0:4])
	p.Flags = b[4]
	p.DataLength = binary.LittleEndian.Uint32(b[5:9])
	p.Reserved = binary.LittleEndian.Uint32(b[9:13])
	return p, nil
}

// ReadPacket reads exactly one packet from r.
func ReadPacket(r io.Reader) (Packet, error) {
	var header [HeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Packet{}, readError("header", err)
	}

	p, err := DecodeHeader(header[:])
	if err != nil {
		return Packet{}, err
	}

	if p.DataLength > MaxDataLength {
		return Packet{}, fmt.Errorf("%w: data length %d exceeds %d", internalerrors.ErrMalformedFrame, p.DataLength, MaxDataLength)
	}

	// The buffer grows as bytes arrive, never to the declared length up front.
	var data bytes.Buffer
	if _, err := io.CopyN(&data, r, int64(p.DataLength)); err != nil {
		return Packet{}, readError("data", err)
	}
	p.Data = data.Bytes()
	if p.Data == nil {
		p.Data = []byte{}
	}
	return p, nil
}

func readError(part string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: unexpected end of stream while reading %s: %w", internalerrors.ErrConnection, part, err)
	}
	return fmt.Errorf("%w: error reading %s: %w", internalerrors.ErrConnection, part, err)
}

// Payload returns the logical payload, inflating compressed data.
//
// The reserved field is only checked for compressed packets.
func (p Packet) Payload() ([]byte, error) {
	if !p.Compressed() {
		return p.Data, nil
	}
	if p.Reserved > MaxDataLength {
		return nil, fmt.Errorf("%w: uncompressed length %d exceeds %d", internalerrors.ErrMalformedFrame, p.Reserved, MaxDataLength)
	}

	zr, err := zlib.NewReader(bytes.NewReader(p.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create zlib reader: %w", internalerrors.ErrIntegrity, err)
	}
	defer zr.Close()

	// Read one byte past the declared length to detect oversized payloads.
	data, err := io.ReadAll(io.LimitReader(zr, int64(p.Reserved)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress data: %w", internalerrors.ErrIntegrity, err)
	}
	if len(data) != int(p.Reserved) {
		return nil, fmt.Errorf("%w: got %d bytes, reserved field says %d", internalerrors.ErrIntegrity, len(data), p.Reserved)
	}
	return data, nil
}

// ParsePacket decodes the packet payload as a JSON object.
//
// Numbers are kept as json.Number.
func ParsePacket(p Packet) (map[string]any, error) {
	data, err := p.Payload()
	if err != nil {
		return nil, err
	}
	return parseJSON(data)
}

// Decode parses a complete packet held in frame.
func Decode(frame []byte) (map[string]any, error) {
	p, err := ReadPacket(bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	return ParsePacket(p)
}

func parseJSON(data []byte) (map[string]any, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid UTF-8", internalerrors.ErrDecode)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerrors.ErrDecode, err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", internalerrors.ErrDecode)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", internalerrors.ErrDecode)
	}
	return payload, nil
}
