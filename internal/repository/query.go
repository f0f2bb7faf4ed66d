package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/campus-portal-api/internal/models"
)

const uniqueViolation pq.ErrorCode = "23505"

// conditions accumulates WHERE clauses with positional placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

// add appends a clause whose format takes the next placeholder index,
// e.g. "course_id = $%d" or "(a LIKE $%[1]d OR b LIKE $%[1]d)".
func (c *conditions) add(format string, value interface{}) {
	c.args = append(c.args, value)
	c.clauses = append(c.clauses, fmt.Sprintf(format, len(c.args)))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// pageWindow clamps page and size the same way models.NewPagination does
// and returns LIMIT/OFFSET values.
func pageWindow(page, size int) (limit, offset int) {
	page, size = models.NormalizePage(page, size)
	return size, (page - 1) * size
}

// orderClause whitelists the sort column and direction.
func orderClause(sortBy, sortOrder string, allowed map[string]string, fallback, fallbackOrder string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = fallbackOrder
	}
	return column + " " + order
}

// exists runs "SELECT 1 FROM table WHERE predicate" excluding excludeID when set.
func exists(ctx context.Context, db *sqlx.DB, table, predicate, excludeID string, args ...interface{}) (bool, error) {
	query := "SELECT 1 FROM " + table + " WHERE " + predicate
	if excludeID != "" {
		args = append(args, excludeID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}
	var found int
	if err := db.GetContext(ctx, &found, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// isUniqueViolation reports a Postgres unique_violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// writeError wraps err with op, turning unique violations into models.ErrDuplicate.
func writeError(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, models.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// affectedOrStale maps a guarded update touching zero rows to models.ErrStaleStatus.
func affectedOrStale(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrStaleStatus
	}
	return nil
}

// affectedOrNotFound maps an update touching zero rows to sql.ErrNoRows.
func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
