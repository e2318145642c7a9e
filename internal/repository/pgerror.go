package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
)

// isUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// missingReference は外部キー制約違反を参照先に応じたセンチネルに変換する。
// 制約名は"<table>_<column>_fkey"の既定命名に従う。
// 外部キー制約違反でない場合はnilを返す。
func missingReference(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != foreignKeyViolation {
		return nil
	}
	if strings.HasSuffix(pqErr.Constraint, "_post_id_fkey") {
		return ErrPostMissing
	}
	return ErrAccountMissing
}
