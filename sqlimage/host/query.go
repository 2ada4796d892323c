package host

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/jmoiron/sqlx"

	"github.com/tomyedwab/sqlimage/sqlimage/bridge"
	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

const listTablesSql = `
SELECT name FROM sqlite_master WHERE type='table';
`

const schemaSql = `
SELECT sql FROM sqlite_master WHERE sql IS NOT NULL;
`

// read materializes image for a read-only unit of work. The handle is put in
// query_only mode, so a statement that would write fails instead of having
// its effect silently discarded, and it is closed without being captured.
func (h *Host) read(ctx context.Context, op string, image types.Image, fn func(handle *bridge.Handle) error) error {
	handle, err := h.strategy.Materialize(ctx, image)
	if err != nil {
		return h.fail(ctx, op, err)
	}
	defer handle.Close()

	if _, err := handle.Conn().ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return h.fail(ctx, op, types.NewErrorWithCause(types.ErrorTypeStatement, "couldn't make the database read-only", err))
	}
	if err := fn(handle); err != nil {
		return h.fail(ctx, op, err)
	}
	return nil
}

// Query runs one read-only statement and returns every result row. Rows are
// fully materialized before Query returns because the engine instance does
// not outlive the call. Mutating statements must go through Execute; here
// they fail with a statement error.
func (h *Host) Query(ctx context.Context, image types.Image, statement string) ([]types.Row, error) {
	if strings.TrimSpace(statement) == "" {
		return nil, h.fail(ctx, "query", types.NewError(types.ErrorTypeStatement, "empty query"))
	}

	var results []types.Row
	err := h.read(ctx, "query", image, func(handle *bridge.Handle) error {
		stmt, err := prepareQuery(ctx, handle.Conn(), statement)
		if err != nil {
			return err
		}
		defer stmt.Close()

		rows, err := stmt.QueryxContext(ctx)
		if err != nil {
			return types.NewErrorWithCause(types.ErrorTypeStatement, "query execution failed", err)
		}
		defer rows.Close()

		results = []types.Row{}
		for rows.Next() {
			values, err := rows.SliceScan()
			if err != nil {
				return types.NewErrorWithCause(types.ErrorTypeStatement, "failed to scan row", err)
			}
			row, err := types.RowFromValues(values)
			if err != nil {
				return types.NewErrorWithCause(types.ErrorTypeStatement, "sqlite query returned an unexpected row", err)
			}
			results = append(results, row)
		}
		if err := rows.Err(); err != nil {
			return types.NewErrorWithCause(types.ErrorTypeStatement, "error iterating rows", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger.DebugContext(ctx, "Ran query", "rows", len(results))
	return results, nil
}

// prepareQuery prepares statement so that every result column comes back as
// stored. go-sqlite3 converts values of columns declared DATE, DATETIME,
// TIMESTAMP or BOOLEAN, so a statement with result columns is wrapped in a
// CTE that selects each column through unary +, which returns its operand
// unchanged and carries no declared type. Statements that cannot be used as
// a CTE body (PRAGMA, EXPLAIN) have no declared column types and run as is.
func prepareQuery(ctx context.Context, conn *sqlx.Conn, statement string) (*sqlx.Stmt, error) {
	stmt, err := conn.PreparexContext(ctx, statement)
	if err != nil {
		return nil, types.NewErrorWithCause(types.ErrorTypeStatement, "couldn't prepare sqlite query", err)
	}

	n, err := columnCount(ctx, stmt)
	if err != nil {
		_ = stmt.Close()
		return nil, types.NewErrorWithCause(types.ErrorTypeStatement, "query execution failed", err)
	}
	if n == 0 {
		return stmt, nil
	}

	wrapped, err := conn.PreparexContext(ctx, passthroughSql(statement, n))
	if err != nil {
		return stmt, nil
	}
	_ = stmt.Close()
	return wrapped, nil
}

// columnCount opens the statement's result set without stepping it.
func columnCount(ctx context.Context, stmt *sqlx.Stmt) (int, error) {
	rows, err := stmt.QueryxContext(ctx)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	return len(columns), err
}

func passthroughSql(statement string, n int) string {
	body := strings.TrimRight(strings.TrimSpace(statement), "; \t\r\n")
	names := make([]string, n)
	exprs := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("c%d", i)
		exprs[i] = "+" + names[i]
	}
	return fmt.Sprintf("WITH q(%s) AS (\n%s\n) SELECT %s FROM q",
		strings.Join(names, ", "), body, strings.Join(exprs, ", "))
}

// ListTables returns the names of all tables in image.
func (h *Host) ListTables(ctx context.Context, image types.Image) ([]string, error) {
	return h.selectStrings(ctx, "list_tables", image, listTablesSql)
}

// Schema returns the DDL of every schema object in image.
func (h *Host) Schema(ctx context.Context, image types.Image) ([]string, error) {
	return h.selectStrings(ctx, "schema", image, schemaSql)
}

func (h *Host) selectStrings(ctx context.Context, op string, image types.Image, query string) ([]string, error) {
	values := []string{}
	err := h.read(ctx, op, image, func(handle *bridge.Handle) error {
		if err := handle.Conn().SelectContext(ctx, &values, query); err != nil {
			return types.NewErrorWithCause(types.ErrorTypeStatement, "query execution failed", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// ValidTableName reports whether name may be spliced unquoted into a query:
// non-empty, letters, digits and underscores only. SQLite has no bind
// parameter for identifiers, so this check is what keeps CountRows from
// running arbitrary SQL.
func ValidTableName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// CountRows returns the number of rows in table. Names that fail
// ValidTableName are rejected before image is even opened.
func (h *Host) CountRows(ctx context.Context, image types.Image, table string) (int64, error) {
	if !ValidTableName(table) {
		return 0, h.fail(ctx, "count_rows",
			types.NewError(types.ErrorTypeInvalidIdentifier, fmt.Sprintf("invalid table name: %q", table)))
	}

	var count int64
	err := h.read(ctx, "count_rows", image, func(handle *bridge.Handle) error {
		if err := handle.Conn().GetContext(ctx, &count, "SELECT COUNT(*) FROM "+table); err != nil {
			return types.NewErrorWithCause(types.ErrorTypeStatement, "couldn't query row count for given table", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
