package remotestore

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	// postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

const dsnTemplate = "user=%s password=%s host=%s dbname=%s sslmode=disable"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type config interface {
	Host() string
	Username() string
	Password() string
	Database() string
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config config) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", fmt.Sprintf(dsnTemplate,
		config.Username(),
		config.Password(),
		config.Host(),
		config.Database()))
	if err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "cannot connect to database")
	}
	return &PostgresStorage{db}, nil
}

var recordColumns = []string{"id", "owner", "amount", "mode", "merchant", "category", "note", "timestamp", "quick"}

// ListByOwner returns the owner's records, newest first.
func (s *PostgresStorage) ListByOwner(ctx context.Context, owner string) ([]expense.Record, error) {
	query := psql.Select(recordColumns...).
		From("expenses").
		Where(sq.Eq{"owner": owner}).
		OrderBy("timestamp DESC", "id ASC")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}
	defer func() {
		rowErr := rows.Close()
		if rowErr != nil {
			logger.Error("error closing rows", zap.Error(rowErr))
		}
	}()

	recs := make([]expense.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list expenses")
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list expenses")
	}

	return recs, nil
}

// Insert writes one record and returns the canonical stored row. Re-sent
// records with a known id update in place, which makes client retries of a
// push that actually landed harmless. The conflict update is guarded by
// owner so a colliding id can never overwrite another owner's row; such an
// insert yields no row and is rejected as invalid.
func (s *PostgresStorage) Insert(ctx context.Context, rec expense.Record) (expense.Record, error) {
	canonical, err := scanRecord(insertQuery(rec).RunWith(s.db).QueryRowContext(ctx))
	if errors.Is(err, sql.ErrNoRows) {
		return expense.Record{}, &customerr.InvalidRecordError{Err: "record id belongs to another owner"}
	}
	if err != nil {
		return expense.Record{}, errors.Wrap(err, "insert expense")
	}
	return canonical, nil
}

func insertQuery(rec expense.Record) sq.InsertBuilder {
	return psql.Insert("expenses").
		Columns(recordColumns...).
		Values(rec.ID, rec.Owner, rec.Amount, string(rec.Mode), rec.Merchant,
			rec.Category, rec.Note, rec.Timestamp, rec.Quick).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			amount = EXCLUDED.amount,
			mode = EXCLUDED.mode,
			merchant = EXCLUDED.merchant,
			category = EXCLUDED.category,
			note = EXCLUDED.note,
			timestamp = EXCLUDED.timestamp,
			quick = EXCLUDED.quick
			WHERE expenses.owner = EXCLUDED.owner
			RETURNING id, owner, amount, mode, merchant, category, note, timestamp, quick`)
}

func (s *PostgresStorage) Delete(ctx context.Context, owner, id string) error {
	query := psql.Delete("expenses").
		Where(sq.Eq{"id": id, "owner": owner})

	_, err := query.RunWith(s.db).ExecContext(ctx)
	return errors.Wrap(err, "delete expense")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (expense.Record, error) {
	var rec expense.Record
	var mode string
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Amount, &mode, &rec.Merchant,
		&rec.Category, &rec.Note, &rec.Timestamp, &rec.Quick)
	if err != nil {
		return expense.Record{}, err
	}
	rec.Mode = expense.Mode(mode)
	return rec, nil
}
