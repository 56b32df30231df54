package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// CandidateRecord is one flattened candidate of one municipality
type CandidateRecord struct {
	Name              string
	PartyAcronym      string
	BallotNumber      string
	MunicipalityName  string
	StateCode         string
	BirthDate         string
	CandidacyValidity string
	Status            string
	TotalVotes        int64
	VotePercentage    float64
	// RunningMateName is set only for mayor records.
	RunningMateName *string
}

// MismatchRecord reports a municipality whose percentages do not sum to 100
type MismatchRecord struct {
	MunicipalityName string          `json:"municipality"`
	StateCode        string          `json:"state"`
	ComputedTotal    decimal.Decimal `json:"computed_total"`
}

// FailureStage names the pipeline step a FailureRecord came from
type FailureStage string

const (
	StageFetch FailureStage = "fetch"
	StageParse FailureStage = "parse"
)

// FailureRecord reports a municipality skipped in lenient mode
type FailureRecord struct {
	MunicipalityName string       `json:"municipality"`
	StateCode        string       `json:"state"`
	URL              string       `json:"url"`
	Stage            FailureStage `json:"stage"`
	Error            string       `json:"error"`
}

// Column names of the exported table.
const (
	ColumnName              = "Name"
	ColumnParty             = "Party"
	ColumnNumber            = "Number"
	ColumnMunicipality      = "Municipality"
	ColumnState             = "State"
	ColumnBirthDate         = "Birth date"
	ColumnCandidacyValidity = "Candidacy validity"
	ColumnStatus            = "Status"
	ColumnTotalVotes        = "Total votes"
	ColumnVotePercentage    = "Vote percentage"
	ColumnRunningMate       = "Running mate"
)

var baseColumns = []string{
	ColumnName,
	ColumnParty,
	ColumnNumber,
	ColumnMunicipality,
	ColumnState,
	ColumnBirthDate,
	ColumnCandidacyValidity,
	ColumnStatus,
	ColumnTotalVotes,
	ColumnVotePercentage,
}

// ResultTable holds the records of a finished run in catalog order
type ResultTable struct {
	Candidacy CandidacyType
	Records   []CandidateRecord
}

// NewResultTable creates an empty table for the given candidacy
func NewResultTable(candidacy CandidacyType) *ResultTable {
	return &ResultTable{Candidacy: candidacy}
}

// Append adds records to the end of the table.
func (t *ResultTable) Append(records ...CandidateRecord) {
	t.Records = append(t.Records, records...)
}

// Header returns the column names; the running-mate column exists only for mayors.
func (t *ResultTable) Header() []string {
	header := make([]string, len(baseColumns), len(baseColumns)+1)
	copy(header, baseColumns)
	if t.Candidacy.HasRunningMate() {
		header = append(header, ColumnRunningMate)
	}
	return header
}

// Values projects a record onto the header columns keeping numeric types.
func (t *ResultTable) Values(r CandidateRecord) []any {
	values := []any{
		r.Name,
		r.PartyAcronym,
		r.BallotNumber,
		r.MunicipalityName,
		r.StateCode,
		r.BirthDate,
		r.CandidacyValidity,
		r.Status,
		r.TotalVotes,
		r.VotePercentage,
	}
	if t.Candidacy.HasRunningMate() {
		mate := ""
		if r.RunningMateName != nil {
			mate = *r.RunningMateName
		}
		values = append(values, mate)
	}
	return values
}

// Row projects a record onto the header columns as text.
func (t *ResultTable) Row(r CandidateRecord) []string {
	values := t.Values(r)
	row := make([]string, len(values))
	for i, v := range values {
		row[i] = FormatValue(v)
	}
	return row
}

// Rows returns every record projected as text, without the header.
func (t *ResultTable) Rows() [][]string {
	rows := make([][]string, len(t.Records))
	for i, r := range t.Records {
		rows[i] = t.Row(r)
	}
	return rows
}

// Matrix returns the header followed by every row.
func (t *ResultTable) Matrix() [][]string {
	return append([][]string{t.Header()}, t.Rows()...)
}

// FormatValue renders a table value the same way in every export format.
func FormatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
