// Package progress carries status updates from a synchronization run to whatever presents them.
// Events only flow outward: the engines never read progress back, and never wait for a slow
// consumer.
package progress

import "fmt"

type Event struct {
	Site     string
	Status   string
	Fraction float64 // 0..1, or -1 when the event carries no progress
	Warning  bool
}

// Reporter sends events for one site.  The zero value, and a nil *Reporter, discard everything.
type Reporter struct {
	site string
	ch   chan<- Event
}

func NewReporter(site string, ch chan<- Event) *Reporter {
	return &Reporter{site: site, ch: ch}
}

func (r *Reporter) Statusf(format string, a ...any) {
	r.send(Event{Status: fmt.Sprintf(format, a...), Fraction: -1})
}

func (r *Reporter) Warnf(format string, a ...any) {
	r.send(Event{Status: fmt.Sprintf(format, a...), Fraction: -1, Warning: true})
}

// Progress reports done out of total units of work.
func (r *Reporter) Progress(done, total int) {
	f := 1.0
	if total > 0 {
		f = float64(done) / float64(total)
	}
	r.send(Event{Fraction: min(max(f, 0), 1)})
}

func (r *Reporter) send(ev Event) {
	if r == nil || r.ch == nil {
		return
	}
	ev.Site = r.site
	select {
	case r.ch <- ev:
	default:
		// consumer is behind; drop rather than stall the traversal.
	}
}
