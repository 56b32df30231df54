package models

// RunState is the orchestrator state of a scrape run
type RunState string

const (
	StateIterating    RunState = "iterating"
	StateExcluded     RunState = "excluded"
	StateFetching     RunState = "fetching"
	StateParsing      RunState = "parsing"
	StateAccumulating RunState = "accumulating"
	StateDone         RunState = "done"
	StateAborted      RunState = "aborted"
)

// Terminal reports whether no further transitions follow.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateAborted
}

// Report collects everything a run learned besides the table itself
type Report struct {
	RunID      string                   `json:"run_id"`
	Candidacy  CandidacyType            `json:"candidacy"`
	State      RunState                 `json:"state"`
	Processed  int                      `json:"processed"`
	Excluded   []MunicipalityDescriptor `json:"excluded"`
	Mismatches []MismatchRecord         `json:"mismatches"`
	Failures   []FailureRecord          `json:"failures"`
}

// Clean reports whether the run produced neither mismatches nor failures.
func (r *Report) Clean() bool {
	return len(r.Mismatches) == 0 && len(r.Failures) == 0
}
