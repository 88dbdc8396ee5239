package config

import (
	"flag"
	"os"
	"strconv"
)

type TrapperConfig struct {
	TrapperAddress  string
	HTTPAddress     string
	StoreInterval   int
	FileStoragePath string
	Restore         bool
	DatabaseDSN     string
	MigrationsURL   string
	AuditFile       string
	AuditURL        string
}

// NewTrapperConfig parses the trapper flags from args; environment variables take precedence.
func NewTrapperConfig(args []string) (*TrapperConfig, error) {
	config := &TrapperConfig{
		TrapperAddress:  DefaultTrapperAddress,
		HTTPAddress:     DefaultHTTPAddress,
		StoreInterval:   300,
		FileStoragePath: "./trapper-measurements.json",
		Restore:         false,
		MigrationsURL:   DefaultMigrationsURL,
	}

	flags := flag.NewFlagSet("trapper", flag.ContinueOnError)
	trapperAddress := flags.String("t", config.TrapperAddress, "trapper listen address")
	httpAddress := flags.String("a", config.HTTPAddress, "http listen address")
	storeInterval := flags.Int("i", config.StoreInterval, "store in file interval in seconds, 0 saves after every request")
	fileStoragePath := flags.String("f", config.FileStoragePath, "path to store file")
	restoreFlag := flags.Bool("r", config.Restore, "restore measurements from file on start")
	databaseDSN := flags.String("d", config.DatabaseDSN, "database dsn, enables postgres storage")
	migrationsURL := flags.String("m", config.MigrationsURL, "migrations source url")
	auditFile := flags.String("audit-file", config.AuditFile, "file to append audit events to")
	auditURL := flags.String("audit-url", config.AuditURL, "url to post audit events to")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	envVars := map[string]*string{
		"TRAPPER_ADDRESS":   trapperAddress,
		"ADDRESS":           httpAddress,
		"FILE_STORAGE_PATH": fileStoragePath,
		"DATABASE_DSN":      databaseDSN,
		"MIGRATIONS_URL":    migrationsURL,
		"AUDIT_FILE":        auditFile,
		"AUDIT_URL":         auditURL,
	}

	for envVar, flag := range envVars {
		if envValue := os.Getenv(envVar); envValue != "" {
			*flag = envValue
		}
	}

	if envStoreInterval := os.Getenv("STORE_INTERVAL"); envStoreInterval != "" {
		interval, err := strconv.Atoi(envStoreInterval)
		if err != nil {
			return nil, err
		}
		*storeInterval = interval
	}

	if envRestoreFlag := os.Getenv("RESTORE"); envRestoreFlag != "" {
		restore, err := strconv.ParseBool(envRestoreFlag)
		if err != nil {
			return nil, err
		}
		*restoreFlag = restore
	}

	config.TrapperAddress = *trapperAddress
	config.HTTPAddress = *httpAddress
	config.StoreInterval = *storeInterval
	config.FileStoragePath = *fileStoragePath
	config.Restore = *restoreFlag
	config.DatabaseDSN = *databaseDSN
	config.MigrationsURL = *migrationsURL
	config.AuditFile = *auditFile
	config.AuditURL = *auditURL

	return config, nil
}
