package repository

import (
	"database/sql"
	"fmt"
	"strings"
)

// orderClause resolves a client supplied sort key against an allow-list.
// Unknown keys fall back to def and unknown directions to DESC.
func orderClause(sortBy, sortOrder string, allowed map[string]string, def string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = allowed[def]
	}
	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	return fmt.Sprintf("%s %s", column, order)
}

// expectAffected converts a zero-row write into sql.ErrNoRows so callers can
// treat "missing" and "owned by someone else" the same way.
func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
