package core

// DBOrdering is a single "field direction" sort clause.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings drops orderings on fields that are not in `allowed`.
// `allowed` maps API field names to their column names.
func FilterOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	res := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[ord.Field]; ok {
			res = append(res, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return res
}

// Page is a 1-based pagination window.
type Page struct {
	Number int
	Limit  int
}

const DefaultPageLimit = 10

// NewPage normalises a page request: number < 1 becomes 1 and limit < 1 becomes DefaultPageLimit.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

// Bounds returns the [start, end) slice bounds of the page within `total` items.
func (p Page) Bounds(total int) (int, int) {
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}
