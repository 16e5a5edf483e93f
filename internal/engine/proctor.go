package engine

// ProctorCounter counts integrity-violation events reported by the host
// environment, typically window focus loss. It only counts; any action
// taken on a non-zero count belongs to consumers of the report.
type ProctorCounter struct {
	warnings int
}

// Increment records one violation event.
func (p *ProctorCounter) Increment() {
	p.warnings++
}

// Warnings returns the number of recorded events.
func (p *ProctorCounter) Warnings() int {
	return p.warnings
}

func (p *ProctorCounter) reset() {
	p.warnings = 0
}
