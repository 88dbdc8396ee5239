package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	"github.com/Schera-ole/zabbix-sender/internal/migration"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name:    "connection failure",
			err:     &pgconn.PgError{Code: pgerrcode.ConnectionFailure},
			wantErr: internalerrors.ErrDatabaseConnection,
		},
		{
			name:    "connection exception",
			err:     &pgconn.PgError{Code: pgerrcode.ConnectionException},
			wantErr: internalerrors.ErrDatabaseConnection,
		},
		{
			name:    "wrapped connection failure",
			err:     fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.SQLClientUnableToEstablishSQLConnection}),
			wantErr: internalerrors.ErrDatabaseConnection,
		},
		{
			name:    "unique violation",
			err:     &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			wantErr: internalerrors.ErrQueryExecution,
		},
		{
			name:    "undefined table",
			err:     &pgconn.PgError{Code: pgerrcode.UndefinedTable},
			wantErr: internalerrors.ErrQueryExecution,
		},
		{
			name:    "plain error",
			err:     errors.New("boom"),
			wantErr: internalerrors.ErrQueryExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyError("action", tt.err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "action")
		})
	}
}

type fakeRow struct {
	host, key, value string
	clock, ns        sql.NullInt64
	err              error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.host
	*dest[1].(*string) = r.key
	*dest[2].(*string) = r.value
	*dest[3].(*sql.NullInt64) = r.clock
	*dest[4].(*sql.NullInt64) = r.ns
	return nil
}

func TestScanMeasurement(t *testing.T) {
	m, err := scanMeasurement(fakeRow{
		host:  "h",
		key:   "k",
		value: "42",
		clock: sql.NullInt64{Int64: 1700000000, Valid: true},
		ns:    sql.NullInt64{Int64: 7, Valid: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "h", m.Host)
	assert.Equal(t, "k", m.Key)
	assert.Equal(t, "42", m.Value)
	require.NotNil(t, m.Clock)
	require.NotNil(t, m.NS)
	assert.Equal(t, int64(1700000000), *m.Clock)
	assert.Equal(t, int64(7), *m.NS)

	m, err = scanMeasurement(fakeRow{host: "h", key: "k", value: "v"})
	require.NoError(t, err)
	assert.Nil(t, m.Clock)
	assert.Nil(t, m.NS)

	_, err = scanMeasurement(fakeRow{err: sql.ErrNoRows})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestNullInt(t *testing.T) {
	assert.Equal(t, sql.NullInt64{}, nullInt(nil))
	v := int64(5)
	assert.Equal(t, sql.NullInt64{Int64: 5, Valid: true}, nullInt(&v))
}

func TestValueString(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{value: nil, want: ""},
		{value: "text", want: "text"},
		{value: 12, want: "12"},
		{value: 0.5, want: "0.5"},
		{value: json.Number("1e3"), want: "1e3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, valueString(tt.value))
	}
}

// Runs against a real database when TEST_DATABASE_DSN is set.
func TestDBStorage(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}
	ctx := context.Background()
	require.NoError(t, migration.RunMigrations(ctx, dsn, "file://../../migrations", zap.NewNop().Sugar()))

	storage, err := NewDBStorage(dsn)
	require.NoError(t, err)
	defer storage.Close()
	require.NoError(t, storage.Ping(ctx))

	host := fmt.Sprintf("test-%d", time.Now().UnixNano())
	require.NoError(t, storage.Store(ctx, []models.Measurement{
		models.NewMeasurement(host, "k", 1),
		models.NewMeasurementAt(host, "t", "text", time.Unix(1700000000, 9)),
	}))
	require.NoError(t, storage.Store(ctx, []models.Measurement{models.NewMeasurement(host, "k", 2)}))

	m, err := storage.Get(ctx, host, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", m.Value)
	assert.Nil(t, m.Clock)

	m, err = storage.Get(ctx, host, "t")
	require.NoError(t, err)
	require.NotNil(t, m.NS)
	assert.Equal(t, int64(9), *m.NS)

	_, err = storage.Get(ctx, host, "missing")
	assert.ErrorIs(t, err, internalerrors.ErrMeasurementNotFound)

	list, err := storage.List(ctx)
	require.NoError(t, err)
	found := 0
	for _, item := range list {
		if item.Host == host {
			found++
		}
	}
	assert.Equal(t, 2, found)
}
