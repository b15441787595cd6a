package persistence

import "strings"

// SortColumns whitelists the columns a list query may be ordered by
type SortColumns map[string]bool

// sortable returns the base entity columns plus extra
func sortable(extra ...string) SortColumns {
	cols := SortColumns{"id": true, "created_at": true, "updated_at": true}
	for _, c := range extra {
		cols[c] = true
	}
	return cols
}

// Field returns requested when it is whitelisted, else fallback
func (s SortColumns) Field(requested, fallback string) string {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if s[requested] {
		return requested
	}
	return fallback
}

// ValidateSortOrder normalizes a sort direction to ASC or DESC (the default)
func ValidateSortOrder(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// List sort whitelists
var (
	BOMSortFields             = sortable("reference", "product_id", "bom_version", "status", "total_bom_cost", "approved_at")
	ProductionOrderSortFields = sortable("reference", "product_id", "status", "priority", "planned_start_date", "quantity_to_produce")
	WorkCenterSortFields      = sortable("code", "name", "utilization_percentage")
	StockMovementSortFields   = sortable("occurred_at", "quantity")
)
