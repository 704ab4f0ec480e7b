package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNilConfig     = errors.New("postgres: config is nil")
	ErrInvalidConfig = errors.New("postgres: invalid config")
	ErrNoRows        = errors.New("postgres: no rows in result set")
)

// SQLSTATE
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsNoRows 兼容 pgx.ErrNoRows 与本包的 ErrNoRows
func IsNoRows(err error) bool {
	return errors.Is(err, ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

// IsLockTimeout 行锁等待超过 lock_timeout
func IsLockTimeout(err error) bool {
	return pgCode(err) == codeLockNotAvailable
}

// IsRetryable 串行化冲突或死锁，事务已整体回滚，可以安全重试
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}
