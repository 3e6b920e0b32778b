package ingest

// Status is the per-file result of alignment.
type Status int

const (
	StatusOK Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileOutcome records what happened to one input file. Err is set for
// skipped files that failed a schema check and for failed files; Reason
// explains skips that are not errors, such as an unmatched catchment.
type FileOutcome struct {
	Path      string
	Catchment string
	Status    Status
	Reason    string
	Err       error
}

func skipped(path, catchment, reason string) FileOutcome {
	return FileOutcome{Path: path, Catchment: catchment, Status: StatusSkipped, Reason: reason}
}
