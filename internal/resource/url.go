// Package resource builds the results API addresses for one municipality.
package resource

import (
	"fmt"
	"strings"

	"muniresults/internal/models"
)

const (
	DefaultHost       = "resultados.tse.jus.br"
	DefaultYear       = 2024
	DefaultElectionID = 619
)

// Template holds the parts of the resource URL bound to an election cycle and round
type Template struct {
	// Scheme defaults to https.
	Scheme     string
	Host       string
	Year       int
	ElectionID int
}

// DefaultTemplate returns the template of the 2024 municipal first round.
func DefaultTemplate() Template {
	return Template{
		Host:       DefaultHost,
		Year:       DefaultYear,
		ElectionID: DefaultElectionID,
	}
}

// PadCode left pads an electoral code with zeros to 5 digits.
func PadCode(code int) string {
	return fmt.Sprintf("%05d", code)
}

// URL returns the results document address, e.g.
// https://resultados.tse.jus.br/oficial/ele2024/619/dados/al/al27014-c0011-e000619-u.json
func (t Template) URL(stateCode string, electoralCode int, candidacy models.CandidacyType) string {
	state := strings.ToLower(stateCode)
	scheme := t.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/oficial/ele%d/%d/dados/%s/%s%s-c00%s-e%06d-u.json",
		scheme,
		t.Host,
		t.Year,
		t.ElectionID,
		state,
		state,
		PadCode(electoralCode),
		candidacy.TypeCode(),
		t.ElectionID,
	)
}

// For is a shortcut for URL with a catalog descriptor.
func (t Template) For(m models.MunicipalityDescriptor, candidacy models.CandidacyType) string {
	return t.URL(m.StateCode, m.ElectoralCode, candidacy)
}
