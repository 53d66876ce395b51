package db

import (
	"errors"
	"fmt"
	"strings"

	"oficina/internal/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueFields maps unique column names to the request field reported on conflict.
// Longer names come first so tax_id is not shadowed by a shorter match.
var uniqueFields = []struct{ column, field string }{
	{"tax_id", "cpf_cnpj"},
	{"email", "email"},
	{"plate", "placa"},
	{"sku", "codigo"},
	{"user_order", "ordem_servico_id"},
	{"service_order_id", "ordem_servico_id"},
	{"user_id", "usuario_id"},
}

// Classify translates driver errors into domain errors: record-not-found becomes
// ErrNotFound, unique violations become *ConflictError naming the colliding field,
// foreign-key violations become ErrInUse or ErrNotFound. Other errors pass through.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	if constraint, ok := uniqueViolation(err); ok {
		return &domain.ConflictError{Field: conflictField(constraint)}
	}
	if referenced, ok := foreignKeyViolation(err); ok {
		if referenced {
			return fmt.Errorf("%w: %v", domain.ErrInUse, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	}
	return err
}

// uniqueViolation returns the part of the error naming the violated constraint
func uniqueViolation(err error) (string, bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		// Duplicate entry 'x' for key 'users.idx_users_email'
		if i := strings.LastIndex(myErr.Message, "for key"); i >= 0 {
			return myErr.Message[i:], true
		}
		return myErr.Message, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	// UNIQUE constraint failed: users.email
	const sqliteUnique = "UNIQUE constraint failed:"
	if msg := err.Error(); strings.Contains(msg, sqliteUnique) {
		return msg[strings.Index(msg, sqliteUnique)+len(sqliteUnique):], true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	return "", false
}

// foreignKeyViolation reports a foreign-key failure and whether it was raised
// because the row is still referenced (as opposed to a missing parent)
func foreignKeyViolation(err error) (referenced bool, ok bool) {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1451:
			return true, true
		case 1452:
			return false, true
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return strings.Contains(pgErr.Detail, "still referenced"), true
	}
	if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
		return true, true
	}
	return false, false
}

func conflictField(constraint string) string {
	constraint = strings.ToLower(constraint)
	for _, f := range uniqueFields {
		if strings.Contains(constraint, f.column) {
			return f.field
		}
	}
	return ""
}
