package utils

import (
	sq "github.com/Masterminds/squirrel" // SQL predicate builder
	"gorm.io/gorm"                       // GORM ORM library
)

// Filter collects optional predicates that are AND-ed into one parameterized
// WHERE clause. An inactive filter adds nothing, never a wildcard.
type Filter struct {
	preds sq.And
}

// Where appends a predicate template with its bound values
func (f *Filter) Where(pred string, args ...any) *Filter {
	f.preds = append(f.preds, sq.Expr(pred, args...))
	return f
}

// WhereIf appends the predicate only when active is true
func (f *Filter) WhereIf(active bool, pred string, args ...any) *Filter {
	if active {
		f.Where(pred, args...)
	}
	return f
}

// Eq appends column = value
func (f *Filter) Eq(column string, value any) *Filter {
	f.preds = append(f.preds, sq.Eq{column: value})
	return f
}

// Len returns the number of predicates collected
func (f *Filter) Len() int { return len(f.preds) }

// Sqlizer exposes the predicates to squirrel select builders
func (f *Filter) Sqlizer() sq.Sqlizer { return f.preds }

// ToSql renders the clause and its arguments. The clause is empty when no predicate is active.
func (f *Filter) ToSql() (string, []any, error) {
	if len(f.preds) == 0 {
		return "", nil, nil
	}
	return f.preds.ToSql()
}

// Apply adds the clause to a gorm query
func (f *Filter) Apply(db *gorm.DB) *gorm.DB {
	clause, args, err := f.ToSql()
	if err != nil {
		_ = db.AddError(err)
		return db
	}
	if clause == "" {
		return db
	}
	return db.Where(clause, args...)
}
