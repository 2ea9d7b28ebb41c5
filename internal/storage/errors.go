package storage

import (
	"errors"

	"github.com/lib/pq"
)

// ErrDuplicateIdentifier возвращается, когда сгенерированный идентификатор
// (номер заказа, счета или трек-номер) уже занят
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// код unique_violation в Postgres
const uniqueViolationCode = "23505"

func isUniqueViolation(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode {
		return pqErr, true
	}
	return nil, false
}

// rowScanner — общий интерфейс для *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}
