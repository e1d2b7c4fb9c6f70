package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL のエラーコード
const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
	codeInvalidText        = "22P02"
)

// pqError は err が PostgreSQL のエラーであればコードと制約名を返す
func pqError(err error) (code, constraint string, ok bool) {
	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		return string(pgErr.Code), pgErr.Constraint, true
	}
	return "", "", false
}

func isUniqueViolation(err error) bool {
	code, _, ok := pqError(err)
	return ok && code == codeUniqueViolation
}

// isNotFound は行が無い場合に加え、UUID 列に UUID 以外の値を渡した場合も真を返す
func isNotFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	code, _, ok := pqError(err)
	return ok && code == codeInvalidText
}
