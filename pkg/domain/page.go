package domain

// Page is the generic list-page result every listBy* store operation
// returns: items plus an opaque cursor for the next page, nil when
// exhausted.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// ListFilters is the common shape of the {filters, limit, order} argument
// spec.md §4.2 describes for every listBy<Index> operation. Index-specific
// filters live alongside each store's own filter struct; this carries only
// the three fields every index shares.
type ListFilters struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
	Order  Order  `json:"order,omitempty"`
}

// Base lets ListFilters itself satisfy memory.IndexFilter/postgres.IndexFilter
// directly, for the append-only kinds (outcome, summary, calibration) whose
// listBy<Index> needs no filter field beyond limit/cursor/order.
func (f ListFilters) Base() ListFilters { return f }

// Order is the sort direction for a listBy<Index> scan.
type Order string

const (
	OrderNewestFirst Order = "NEWEST_FIRST"
	OrderOldestFirst Order = "OLDEST_FIRST"
)

// CreateOutcome is the result of a conditional create-if-absent put.
type CreateOutcome string

const (
	Created      CreateOutcome = "CREATED"
	AlreadyExists CreateOutcome = "ALREADY_EXISTS"
)
