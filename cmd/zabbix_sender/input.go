package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

// readInput parses lines of "<host> <key> <value>", or "<host> <key> <clock> <value>"
// when withTimestamps is set. A host of "-" is replaced by defaultHost.
// Values may be double quoted to contain spaces.
func readInput(r io.Reader, defaultHost string, withTimestamps bool) ([]models.Measurement, error) {
	var measurements []models.Measurement
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m, err := parseLine(line, defaultHost, withTimestamps)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		measurements = append(measurements, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	return measurements, nil
}

func parseLine(line, defaultHost string, withTimestamps bool) (models.Measurement, error) {
	fields := 3
	if withTimestamps {
		fields = 4
	}

	parts := make([]string, 0, fields)
	rest := line
	for len(parts) < fields-1 {
		rest = strings.TrimLeft(rest, " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			return models.Measurement{}, fmt.Errorf("expected %d fields in %q", fields, line)
		}
		parts = append(parts, rest[:end])
		rest = rest[end+1:]
	}
	value, err := unquote(strings.TrimLeft(rest, " \t"))
	if err != nil {
		return models.Measurement{}, err
	}

	host := parts[0]
	if host == "-" {
		host = defaultHost
	}
	if host == "" {
		return models.Measurement{}, fmt.Errorf("no host in %q and no default host set", line)
	}

	if !withTimestamps {
		return models.NewMeasurement(host, parts[1], value), nil
	}
	clock, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return models.Measurement{}, fmt.Errorf("invalid timestamp %q: %w", parts[2], err)
	}
	return models.NewMeasurementAt(host, parts[1], value, time.Unix(clock, 0)), nil
}

func unquote(value string) (string, error) {
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		unquoted, err := strconv.Unquote(value)
		if err != nil {
			return "", fmt.Errorf("invalid quoted value %s: %w", value, err)
		}
		return unquoted, nil
	}
	return value, nil
}
