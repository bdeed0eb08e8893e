package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"twitter_api/internal/utils"
)

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Schema maps one entity type onto a table keyed by its string id.
type Schema[T Record] struct {
	Table   string
	Key     string
	Columns []string // non-key columns, in the order Values returns them

	Values func(rec T) []any
	// Scan reads the key followed by Columns.
	Scan func(row Scanner) (T, error)
}

// TableCollection runs every operation as a single statement, except updates
// which need the current row for the mutator and therefore run in one short
// transaction.
type TableCollection[T Record] struct {
	db     *sql.DB
	schema Schema[T]

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
	lockSQL   string
}

func NewTableCollection[T Record](db *sql.DB, driver string, schema Schema[T]) *TableCollection[T] {
	all := append([]string{schema.Key}, schema.Columns...)
	cols := strings.Join(all, ", ")

	placeholders := make([]string, len(all))
	for i := range all {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	sets := make([]string, len(schema.Columns))
	for i, col := range schema.Columns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}

	c := &TableCollection[T]{
		db:        db,
		schema:    schema,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", cols, schema.Table),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.Table, cols, strings.Join(placeholders, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", schema.Table, strings.Join(sets, ", "), schema.Key, len(schema.Columns)+1),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s = $1 RETURNING %s", schema.Table, schema.Key, cols),
	}

	// SQLite locks the whole database for a write transaction.
	if driver == "pgx" || driver == "postgres" {
		c.lockSQL = " FOR UPDATE"
	}
	return c
}

func (c *TableCollection[T]) List(ctx context.Context) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, c.selectSQL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.schema.Table, err)
	}
	defer rows.Close()

	records := []T{}
	for rows.Next() {
		rec, err := c.schema.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.schema.Table, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.schema.Table, err)
	}
	return records, nil
}

func (c *TableCollection[T]) Append(ctx context.Context, rec T) (T, error) {
	var zero T
	args := append([]any{rec.RecordID()}, c.schema.Values(rec)...)

	if _, err := c.db.ExecContext(ctx, c.insertSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return zero, ErrDuplicateID
		}
		return zero, fmt.Errorf("insert %s: %w", c.schema.Table, err)
	}
	return rec, nil
}

func (c *TableCollection[T]) FindByID(ctx context.Context, id string) (T, error) {
	return c.findOne(c.db.QueryRowContext(ctx, c.selectSQL+" WHERE "+c.schema.Key+" = $1", id))
}

func (c *TableCollection[T]) UpdateByID(ctx context.Context, id string, mutate Mutator[T]) (T, error) {
	var result T

	err := utils.WithTransaction(ctx, c.db, func(tx *sql.Tx) error {
		query := c.selectSQL + " WHERE " + c.schema.Key + " = $1" + c.lockSQL
		rec, err := c.findOne(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			return err
		}

		if err := mutate(&rec); err != nil {
			return err
		}
		if rec.RecordID() != id {
			return fmt.Errorf("update %s: record id changed to %s", id, rec.RecordID())
		}

		args := append(c.schema.Values(rec), id)
		res, err := tx.ExecContext(ctx, c.updateSQL, args...)
		if err != nil {
			return fmt.Errorf("update %s: %w", c.schema.Table, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update %s: %w", c.schema.Table, err)
		}
		if affected == 0 {
			return ErrNotFound
		}

		result = rec
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// DeleteByID removes and returns the row in one conditional statement.
func (c *TableCollection[T]) DeleteByID(ctx context.Context, id string) (T, error) {
	return c.findOne(c.db.QueryRowContext(ctx, c.deleteSQL, id))
}

func (c *TableCollection[T]) findOne(row *sql.Row) (T, error) {
	rec, err := c.schema.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, ErrNotFound
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("query %s: %w", c.schema.Table, err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
