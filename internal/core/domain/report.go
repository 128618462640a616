package domain

import "time"

// ComparisonReport is the outcome of one comparison run. The engine builds it
// once; sinks only read it.
type ComparisonReport struct {
	ID                string
	Target            Target
	CreatedAt         time.Time
	BaselineCreatedAt time.Time
	Changes           []ChangeRecord
	Preferences       []PreferenceChange
	Databases         []DatabaseChange
}

func (r *ComparisonReport) Added() []ChangeRecord    { return r.byKind(ChangeAdded) }
func (r *ComparisonReport) Removed() []ChangeRecord  { return r.byKind(ChangeRemoved) }
func (r *ComparisonReport) Modified() []ChangeRecord { return r.byKind(ChangeModified) }

func (r *ComparisonReport) HasChanges() bool {
	return len(r.Changes) > 0 || len(r.Preferences) > 0 || len(r.Databases) > 0
}

func (r *ComparisonReport) byKind(kind ChangeKind) []ChangeRecord {
	var out []ChangeRecord
	for _, c := range r.Changes {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
