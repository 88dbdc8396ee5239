// Package models defines the data structures exchanged with a Zabbix trapper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SenderDataRequest is the request type of a trapper submission.
const SenderDataRequest = "sender data"

// Measurement is a single value for one item of one host.
//
// Fields are declared in key order so the encoded object has sorted keys.
type Measurement struct {
	// Clock is the Unix timestamp of the value, omitted when unset
	Clock *int64 `json:"clock,omitempty"`

	// Host is the host name as registered in the Zabbix frontend
	Host string `json:"host"`

	// Key is the item key the value belongs to
	Key string `json:"key"`

	// NS is the nanosecond part of the timestamp, omitted when unset
	NS *int64 `json:"ns,omitempty"`

	// Value is the item value (number or string)
	Value any `json:"value"`
}

// NewMeasurement creates a measurement without a timestamp.
func NewMeasurement(host, key string, value any) Measurement {
	return Measurement{Host: host, Key: key, Value: value}
}

// NewMeasurementAt creates a measurement stamped with t.
func NewMeasurementAt(host, key string, value any, t time.Time) Measurement {
	clock, ns := SplitTime(t)
	return Measurement{Host: host, Key: key, Value: value, Clock: &clock, NS: &ns}
}

// SplitTime splits t into the Unix seconds and the nanoseconds within that second.
func SplitTime(t time.Time) (clock int64, ns int64) {
	return t.Unix(), int64(t.Nanosecond())
}

// Measurements is a collection of measurements sent in one request.
type Measurements struct {
	// Clock is the request timestamp, omitted when unset
	Clock *int64

	// NS is the nanosecond part of the request timestamp, omitted when unset
	NS *int64

	items []Measurement
}

// Request is the wire form of a sender data request.
type Request struct {
	Clock   *int64        `json:"clock,omitempty"`
	Data    []Measurement `json:"data"`
	NS      *int64        `json:"ns,omitempty"`
	Request string        `json:"request"`
}

// NewMeasurements creates a collection without a request timestamp.
func NewMeasurements(items ...Measurement) *Measurements {
	return &Measurements{items: append([]Measurement{}, items...)}
}

// NewMeasurementsAt creates a collection stamped with t.
func NewMeasurementsAt(t time.Time, items ...Measurement) *Measurements {
	clock, ns := SplitTime(t)
	m := NewMeasurements(items...)
	m.Clock = &clock
	m.NS = &ns
	return m
}

// Add appends a measurement to the collection.
func (m *Measurements) Add(measurement Measurement) {
	m.items = append(m.items, measurement)
}

// Len returns the number of measurements in the collection.
func (m *Measurements) Len() int {
	return len(m.items)
}

// Items returns a copy of the measurements in insertion order.
func (m *Measurements) Items() []Measurement {
	return append([]Measurement{}, m.items...)
}

// Request returns the wire form of the collection.
func (m *Measurements) Request() Request {
	data := m.items
	if data == nil {
		data = []Measurement{}
	}
	return Request{
		Clock:   m.Clock,
		Data:    data,
		NS:      m.NS,
		Request: SenderDataRequest,
	}
}

// Bytes encodes the collection as compact JSON with sorted keys.
func (m *Measurements) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(m.Request()); err != nil {
		return nil, fmt.Errorf("error encoding measurements: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (m *Measurements) String() string {
	data, err := m.Bytes()
	if err != nil {
		return fmt.Sprintf("<invalid measurements: %v>", err)
	}
	return string(data)
}
