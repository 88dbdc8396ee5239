// Package config provides configuration for the trapper emulator.
package config

const (
	// DefaultTrapperAddress is the listen address of the trapper port.
	DefaultTrapperAddress = "localhost:10051"

	// DefaultHTTPAddress is the listen address of the inspection API.
	DefaultHTTPAddress = "localhost:8080"

	// DefaultMigrationsURL is the golang-migrate source with the schema.
	DefaultMigrationsURL = "file://./migrations"
)
