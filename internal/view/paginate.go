package view

import "github.com/nodesight/nodesight/pkg/models"

// DisplayMode controls card layout density and whether per-node charts
// render at all.
type DisplayMode string

const (
	ModeDetailed DisplayMode = "detailed"
	ModeNormal   DisplayMode = "normal"
	ModeCompact  DisplayMode = "compact"
	ModeMinimal  DisplayMode = "minimal"
)

// Densities are the supported items-per-page choices, smallest first.
var Densities = []int{3, 6, 9, 12, 24}

// DefaultPageSize is the density selected on a fresh session.
const DefaultPageSize = 6

// DisplayModeFor maps an items-per-page value to its display mode. The
// mapping is a step function: the smallest size gets the single-column
// detailed layout, the mid tier still renders charts, and the two largest
// sizes suppress per-node charts entirely.
func DisplayModeFor(pageSize int) DisplayMode {
	switch {
	case pageSize <= 3:
		return ModeDetailed
	case pageSize <= 9:
		return ModeNormal
	case pageSize <= 12:
		return ModeCompact
	default:
		return ModeMinimal
	}
}

// ChartsEnabled reports whether per-node charts render in this mode.
func (m DisplayMode) ChartsEnabled() bool {
	return m == ModeDetailed || m == ModeNormal
}

// ChartHistoryLen is the history suffix length charted per node in this
// mode. Spacious layouts chart a longer window.
func (m DisplayMode) ChartHistoryLen() int {
	if m == ModeNormal {
		return 10
	}
	return 30
}

// Page is one slice of the filtered list.
type Page struct {
	Items      []models.Node
	Number     int // clamped page number actually shown
	TotalPages int
	TotalItems int
}

// Paginate slices the filtered list for the requested page. The page number
// is clamped into [1, totalPages]; an empty list yields page 1 with zero
// items and zero total pages.
func Paginate(filtered []models.Node, page, pageSize int) Page {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	total := len(filtered)
	totalPages := (total + pageSize - 1) / pageSize

	if page < 1 {
		page = 1
	}
	if totalPages > 0 && page > totalPages {
		page = totalPages
	}
	if totalPages == 0 {
		return Page{Number: 1, TotalItems: 0, TotalPages: 0}
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}

	return Page{
		Items:      filtered[start:end],
		Number:     page,
		TotalPages: totalPages,
		TotalItems: total,
	}
}
