package errors

import "errors"

var (
	// Protocol errors
	ErrMalformedFrame = errors.New("malformed frame")
	ErrIntegrity      = errors.New("decompressed length mismatch")
	ErrDecode         = errors.New("invalid response payload")
	ErrProtocol       = errors.New("unexpected server response")
	ErrFormat         = errors.New("unrecognized info format")

	// Transport errors
	ErrConnection = errors.New("connection failed")

	// Storage errors
	ErrMeasurementNotFound = errors.New("measurement not found")
	ErrInvalidMeasurement  = errors.New("invalid measurement")
	ErrDatabaseConnection  = errors.New("database connection failed")
	ErrQueryExecution      = errors.New("query execution failed")
)
