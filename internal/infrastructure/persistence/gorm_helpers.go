package persistence

import (
	"errors"
	"strings"

	"github.com/erp/manufacturing/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a SELECT ... FOR UPDATE row lock. Dialects without row
// locks (sqlite) ignore the clause and rely on their single writer.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// translateError maps driver errors onto domain errors
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// updateVersioned writes every column of model guarded by the expected version.
// model must already carry the incremented version.
func updateVersioned(tx *gorm.DB, model any, expected int) error {
	result := tx.Model(model).
		Select("*").
		Omit(clause.Associations, "created_at").
		Where("version = ?", expected).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// paginate applies ordering and paging from a filter. Sort fields are
// checked against the whitelist so user input never reaches ORDER BY.
func paginate(query *gorm.DB, filter shared.Filter, allowed SortColumns) *gorm.DB {
	field := allowed.Field(filter.OrderBy, "id")
	query = query.Order(field + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}

// whereFilters applies equality filters for the whitelisted columns only
func whereFilters(query *gorm.DB, filter shared.Filter, columns ...string) *gorm.DB {
	for _, col := range columns {
		if v, ok := filter.Filters[col]; ok {
			query = query.Where(col+" = ?", v)
		}
	}
	return query
}

// pruneChildren deletes the parent's child rows whose id is not in keep
func pruneChildren(tx *gorm.DB, model any, foreignKey string, parentID int64, keep []int64) error {
	query := tx.Where(foreignKey+" = ?", parentID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	return query.Delete(model).Error
}

// saveChild inserts a new child row or overwrites an existing one, leaving
// nested associations to the caller
func saveChild(tx *gorm.DB, model any, isNew bool) error {
	if isNew {
		return tx.Omit(clause.Associations).Create(model).Error
	}
	return tx.Omit(clause.Associations).Save(model).Error
}
