package parser

import (
	"bytes"

	"github.com/goccy/go-json"
)

// document mirrors the consumed subset of a municipality result file.
// Keys follow the upstream abbreviations.
type document struct {
	Races []race `json:"carg"`
}

type race struct {
	Coalitions []coalition `json:"agr"`
}

type coalition struct {
	Parties []party `json:"par"`
}

type party struct {
	Acronym    flexString  `json:"sg"`
	Candidates []candidate `json:"cand"`
}

type candidate struct {
	Name              flexString    `json:"nmu"`
	Number            flexString    `json:"n"`
	BirthDate         flexString    `json:"dt"`
	Validity          flexString    `json:"dvt"`
	Status            flexString    `json:"st"`
	Votes             flexString    `json:"vap"`
	Percentage        flexString    `json:"pvap"`
	PercentagePrecise flexString    `json:"pvapn"`
	RunningMates      []runningMate `json:"vs"`
}

type runningMate struct {
	Name flexString `json:"nmu"`
}

// flexString accepts a JSON string or number and remembers whether the key was set.
type flexString struct {
	Value   string
	Present bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &f.Value); err != nil {
			return err
		}
	} else {
		f.Value = string(b)
	}
	f.Present = true
	return nil
}
