// Package parser flattens a municipality result document into candidate records.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"muniresults/internal/models"
)

// tabEntity is left in some names by the upstream publisher.
const tabEntity = "&#09;"

// ParseError represents a document that lacks an expected field
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(field string, err error) *ParseError {
	return &ParseError{
		Field: field,
		Err:   err,
	}
}

// ErrMissingField is wrapped by a ParseError when a required key is absent.
var ErrMissingField = errors.New("field is missing")

// Result is the flattened content of one municipality document
type Result struct {
	Records []models.CandidateRecord
	// Shares holds the high-precision vote percentage of every record, in order.
	Shares []decimal.Decimal
}

// Parse decodes raw and walks races, coalitions, parties and candidates.
func Parse(raw []byte, m models.MunicipalityDescriptor, candidacy models.CandidacyType) (*Result, error) {
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, NewParseError("$", err)
	}
	if len(doc.Races) == 0 {
		return nil, NewParseError("carg", ErrMissingField)
	}

	race := doc.Races[0]
	if race.Coalitions == nil {
		return nil, NewParseError("carg[0].agr", ErrMissingField)
	}

	state := strings.ToUpper(m.StateCode)
	res := &Result{}
	for ai, agr := range race.Coalitions {
		agrPath := fmt.Sprintf("carg[0].agr[%d]", ai)
		if agr.Parties == nil {
			return nil, NewParseError(agrPath+".par", ErrMissingField)
		}
		for pi, par := range agr.Parties {
			parPath := fmt.Sprintf("%s.par[%d]", agrPath, pi)
			if !par.Acronym.Present {
				return nil, NewParseError(parPath+".sg", ErrMissingField)
			}
			if par.Candidates == nil {
				return nil, NewParseError(parPath+".cand", ErrMissingField)
			}
			for ci, cand := range par.Candidates {
				candPath := fmt.Sprintf("%s.cand[%d]", parPath, ci)
				record, share, err := cand.flatten(candPath, candidacy)
				if err != nil {
					return nil, err
				}
				record.PartyAcronym = par.Acronym.Value
				record.MunicipalityName = m.DisplayName
				record.StateCode = state
				res.Records = append(res.Records, record)
				res.Shares = append(res.Shares, share)
			}
		}
	}
	return res, nil
}

func (c candidate) flatten(path string, candidacy models.CandidacyType) (models.CandidateRecord, decimal.Decimal, error) {
	var rec models.CandidateRecord

	for _, f := range []struct {
		key string
		v   flexString
	}{
		{"nmu", c.Name},
		{"n", c.Number},
		{"st", c.Status},
		{"vap", c.Votes},
		{"pvap", c.Percentage},
		{"pvapn", c.PercentagePrecise},
	} {
		if !f.v.Present {
			return rec, decimal.Zero, NewParseError(path+"."+f.key, ErrMissingField)
		}
	}

	votes, err := parseVotes(c.Votes.Value)
	if err != nil {
		return rec, decimal.Zero, NewParseError(path+".vap", err)
	}
	pct, err := parsePercentage(c.Percentage.Value)
	if err != nil {
		return rec, decimal.Zero, NewParseError(path+".pvap", err)
	}
	share, err := parseShare(c.PercentagePrecise.Value)
	if err != nil {
		return rec, decimal.Zero, NewParseError(path+".pvapn", err)
	}

	rec = models.CandidateRecord{
		Name:              CleanName(c.Name.Value),
		BallotNumber:      c.Number.Value,
		BirthDate:         c.BirthDate.Value,
		CandidacyValidity: c.Validity.Value,
		Status:            c.Status.Value,
		TotalVotes:        votes,
		VotePercentage:    pct,
	}

	if candidacy.HasRunningMate() {
		if len(c.RunningMates) == 0 {
			return rec, decimal.Zero, NewParseError(path+".vs", ErrMissingField)
		}
		if !c.RunningMates[0].Name.Present {
			return rec, decimal.Zero, NewParseError(path+".vs[0].nmu", ErrMissingField)
		}
		mate := CleanName(c.RunningMates[0].Name.Value)
		rec.RunningMateName = &mate
	}
	return rec, share, nil
}

// CleanName drops tab entities, decodes HTML entities and removes commas.
func CleanName(raw string) string {
	s := strings.ReplaceAll(raw, tabEntity, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, ",", "")
	return norm.NFC.String(s)
}

// decimalText turns a decimal-comma string into one strconv and decimal accept.
func decimalText(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

func parseVotes(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	return strconv.ParseInt(s, 10, 64)
}

func parsePercentage(s string) (float64, error) {
	return strconv.ParseFloat(decimalText(s), 64)
}

func parseShare(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(decimalText(s))
}
