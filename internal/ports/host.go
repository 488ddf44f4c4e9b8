package ports

import "github.com/ghalamif/AegisPulse/internal/domain"

// TimingProvider exposes navigation and paint timings of the host, if it has any.
type TimingProvider interface {
	Timings() (domain.NavigationTiming, bool)
}

// PageInspector takes a snapshot of what the host is currently displaying.
type PageInspector interface {
	Snapshot() (domain.PageSnapshot, bool)
}
