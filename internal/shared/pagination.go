package shared

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Page bounds read-only list queries.
type Page struct {
	Limit  int
	Offset int
}

// Normalize applies default and maximum limits.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
