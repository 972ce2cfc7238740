// Package repository implements the directory's storage layer on SQLite.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"dirbridge/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound("resource not found")
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return domain.ErrConflict("resource already exists")
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return domain.ErrValidation("referenced resource does not exist")
	}
	return err
}

// escapeLike escapes LIKE wildcards in user-supplied search terms.
// Queries using it must specify ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
