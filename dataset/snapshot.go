package dataset

import "time"

// Snapshot is one decoded version of a dataset as handed out by the Cache.
// The Table is shared between every reader and must be treated as read-only;
// derive views with Clone, WithColumn or Filter.
type Snapshot struct {
	Key         string
	Table       *Table
	LastUpdated string
	// ModTime is the modification time of the local file the table was decoded from.
	ModTime     time.Time
	RefreshedAt time.Time
	// Stale is set when the last refresh failed and an older copy is served.
	Stale      bool
	RefreshErr error
}

// Empty reports the "no data" outcome: a dataset that decoded fine but has no rows.
func (s *Snapshot) Empty() bool {
	return s.Table == nil || s.Table.Rows() == 0
}

func (s *Snapshot) copy() *Snapshot {
	c := *s
	return &c
}
