package models

import (
	"fmt"
	"strings"
)

// CandidacyType represents the contest a scrape run targets
type CandidacyType string

const (
	CandidacyMayor     CandidacyType = "mayor"
	CandidacyCouncilor CandidacyType = "councilor"
)

// ParseCandidacyType validates and normalizes a candidacy type value
func ParseCandidacyType(s string) (CandidacyType, error) {
	c := CandidacyType(strings.ToLower(strings.TrimSpace(s)))
	if err := ValidateCandidacyType(c); err != nil {
		return "", err
	}
	return c, nil
}

// ValidateCandidacyType checks if the candidacy type is valid
func ValidateCandidacyType(c CandidacyType) error {
	switch c {
	case CandidacyMayor, CandidacyCouncilor:
		return nil
	default:
		return fmt.Errorf("invalid candidacy type: %q (want %q or %q)", string(c), CandidacyMayor, CandidacyCouncilor)
	}
}

// TypeCode returns the office code used by the results API.
func (c CandidacyType) TypeCode() string {
	if c == CandidacyMayor {
		return "11"
	}
	return "13"
}

// HasRunningMate reports whether records of this candidacy carry a running mate.
func (c CandidacyType) HasRunningMate() bool {
	return c == CandidacyMayor
}

// ExportFormat represents the serialization of the result table
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseExportFormat validates and normalizes an export format value
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid export format: %q (want %q or %q)", s, FormatCSV, FormatJSON)
	}
}

// Extension returns the file extension without the leading dot.
func (f ExportFormat) Extension() string {
	return string(f)
}

// MunicipalityDescriptor identifies one municipality of the reference catalog
type MunicipalityDescriptor struct {
	StateCode     string `json:"state_code"`
	ElectoralCode int    `json:"electoral_code"`
	DisplayName   string `json:"display_name"`
}

// Validate ensures all required fields are present and valid
func (m MunicipalityDescriptor) Validate() error {
	if len(m.StateCode) != 2 {
		return fmt.Errorf("state code must have 2 letters, got %q", m.StateCode)
	}
	if m.ElectoralCode <= 0 {
		return fmt.Errorf("electoral code must be positive, got %d", m.ElectoralCode)
	}
	if m.DisplayName == "" {
		return fmt.Errorf("display name is required")
	}
	return nil
}

func (m MunicipalityDescriptor) String() string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(m.StateCode), m.DisplayName)
}
