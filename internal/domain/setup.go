package domain

// SetupStatus reports whether the schema is in place and how much data it
// holds. Counts are only meaningful when every table is present.
type SetupStatus struct {
	Tables  []TableStatus
	Trips   int64
	Vendors int64
	Zones   int64
}

// TableStatus is the presence of one expected relation.
type TableStatus struct {
	Name    string
	Present bool
}

// Ready reports whether every expected relation exists.
func (s SetupStatus) Ready() bool {
	for _, t := range s.Tables {
		if !t.Present {
			return false
		}
	}
	return len(s.Tables) > 0
}
