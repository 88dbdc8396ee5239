package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	internalerrors "github.com/Schera-ole/zabbix-sender/internal/errors"
	models "github.com/Schera-ole/zabbix-sender/internal/model"
)

const (
	upsertQuery = `INSERT INTO measurements (host, key, value, clock, ns, received_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (host, key) DO UPDATE
SET value = EXCLUDED.value, clock = EXCLUDED.clock, ns = EXCLUDED.ns, received_at = NOW()`
	selectQuery = "SELECT host, key, value, clock, ns FROM measurements WHERE host = $1 AND key = $2"
	listQuery   = "SELECT host, key, value, clock, ns FROM measurements ORDER BY host, key"
)

type DBStorage struct {
	db *sql.DB
}

func NewDBStorage(dsn string) (*DBStorage, error) {
	dbConnect, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DBStorage{db: dbConnect}, nil
}

func (storage *DBStorage) Close() error {
	return storage.db.Close()
}

// classifyError maps postgres failures onto the storage error kinds.
func classifyError(action string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return fmt.Errorf("%w: %s: %w", internalerrors.ErrDatabaseConnection, action, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%w: %s: %w", internalerrors.ErrDatabaseConnection, action, err)
	}
	return fmt.Errorf("%w: %s: %w", internalerrors.ErrQueryExecution, action, err)
}

func (storage *DBStorage) Store(ctx context.Context, measurements []models.Measurement) error {
	tx, err := storage.db.BeginTx(ctx, nil)
	if err != nil {
		return classifyError("can't start transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return classifyError("error preparing upsert", err)
	}
	defer stmt.Close()

	for _, m := range measurements {
		_, err := stmt.ExecContext(ctx, m.Host, m.Key, valueString(m.Value), nullInt(m.Clock), nullInt(m.NS))
		if err != nil {
			return classifyError("error saving measurement", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classifyError("error committing measurements", err)
	}
	return nil
}

func (storage *DBStorage) Get(ctx context.Context, host, key string) (models.Measurement, error) {
	row := storage.db.QueryRowContext(ctx, selectQuery, host, key)
	m, err := scanMeasurement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Measurement{}, fmt.Errorf("%w: %s %s", internalerrors.ErrMeasurementNotFound, host, key)
		}
		return models.Measurement{}, classifyError("error retrieving measurement", err)
	}
	return m, nil
}

func (storage *DBStorage) List(ctx context.Context) ([]models.Measurement, error) {
	rows, err := storage.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, classifyError("error retrieving measurements", err)
	}
	defer rows.Close()

	var result []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, classifyError("error scanning measurement", err)
		}
		result = append(result, m)
	}
	if err = rows.Err(); err != nil {
		return nil, classifyError("error iterating over measurements", err)
	}
	return result, nil
}

func (storage *DBStorage) Ping(ctx context.Context) error {
	if err := storage.db.PingContext(ctx); err != nil {
		return classifyError("ping", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(row scanner) (models.Measurement, error) {
	var (
		m     models.Measurement
		value string
		clock sql.NullInt64
		ns    sql.NullInt64
	)
	if err := row.Scan(&m.Host, &m.Key, &value, &clock, &ns); err != nil {
		return models.Measurement{}, err
	}
	m.Value = value
	if clock.Valid {
		m.Clock = &clock.Int64
	}
	if ns.Valid {
		m.NS = &ns.Int64
	}
	return m, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// valueString renders a value the way the trapper stores it.
func valueString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
