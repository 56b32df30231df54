package pipeline

import (
	"strings"

	"muniresults/internal/models"
)

const (
	// FederalDistrict holds no municipal elections.
	FederalDistrict = "df"
	// FernandoDeNoronha is an island district without a mayoral race.
	FernandoDeNoronha = "FERNANDO DE NORONHA"
)

// Exclusions lists catalog entries that are skipped without a fetch
type Exclusions struct {
	States         []string
	Municipalities []string
}

// DefaultExclusions returns the entries that never have a municipal race.
func DefaultExclusions() Exclusions {
	return Exclusions{
		States:         []string{FederalDistrict},
		Municipalities: []string{FernandoDeNoronha},
	}
}

// Excludes reports whether m must be skipped and why.
func (e Exclusions) Excludes(m models.MunicipalityDescriptor) (string, bool) {
	for _, s := range e.States {
		if strings.EqualFold(s, m.StateCode) {
			return "state " + strings.ToUpper(m.StateCode) + " holds no municipal election", true
		}
	}
	for _, name := range e.Municipalities {
		if strings.EqualFold(name, m.DisplayName) {
			return m.DisplayName + " holds no mayoral race", true
		}
	}
	return "", false
}
