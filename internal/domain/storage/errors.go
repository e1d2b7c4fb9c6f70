// Package storage defines the error contract between repositories and the
// application layer for failures that are not business-rule violations.
package storage

import (
	"errors"
	"fmt"
)

// Error は永続化層の失敗を表す
// 現在の操作は失敗させるが、プロセスは継続できる
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ストレージエラー (%s): %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap は err を *Error で包む。nil や既に *Error の場合はそのまま返す
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError は err が永続化層の失敗かを返す
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
