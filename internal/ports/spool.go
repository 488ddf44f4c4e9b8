package ports

import "github.com/ghalamif/AegisPulse/internal/domain"

// SpoolEntryID orders records parked in a Spool. IDs only grow, across restarts too.
type SpoolEntryID uint64

// Spool parks records the sink refused so a later start can retry them.
type Spool interface {
	Append(records ...*domain.Record) (SpoolEntryID, error)
	Iterate(from SpoolEntryID, fn func(id SpoolEntryID, r *domain.Record) error) error
	Commit(upto SpoolEntryID) error
	Stats() SpoolStats
	Close() error
}

type SpoolStats struct {
	OldestUncommitted SpoolEntryID
	LatestAppended    SpoolEntryID
	SizeBytes         int64
}
