package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseCandidacyType(t *testing.T) {
	tests := []struct {
		in      string
		want    CandidacyType
		wantErr bool
	}{
		{in: "mayor", want: CandidacyMayor},
		{in: " Councilor ", want: CandidacyCouncilor},
		{in: "prefeito", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCandidacyType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidacyTypeCode(t *testing.T) {
	assert.Equal(t, "11", CandidacyMayor.TypeCode())
	assert.Equal(t, "13", CandidacyCouncilor.TypeCode())
}

func TestParseExportFormat(t *testing.T) {
	f, err := ParseExportFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "json", f.Extension())

	_, err = ParseExportFormat("xlsx")
	require.Error(t, err)
}

func TestMunicipalityDescriptorValidate(t *testing.T) {
	assert.NoError(t, MunicipalityDescriptor{StateCode: "al", ElectoralCode: 27014, DisplayName: "MACEIÓ"}.Validate())
	assert.Error(t, MunicipalityDescriptor{StateCode: "alx", ElectoralCode: 1, DisplayName: "X"}.Validate())
	assert.Error(t, MunicipalityDescriptor{StateCode: "al", ElectoralCode: 0, DisplayName: "X"}.Validate())
	assert.Error(t, MunicipalityDescriptor{StateCode: "al", ElectoralCode: 1}.Validate())
}

func TestResultTableHeaderMatchesRows(t *testing.T) {
	record := CandidateRecord{
		Name:              "FULANO",
		PartyAcronym:      "ABC",
		BallotNumber:      "15",
		MunicipalityName:  "MACEIÓ",
		StateCode:         "AL",
		BirthDate:         "01/02/1970",
		CandidacyValidity: "Válido",
		Status:            "Eleito",
		TotalVotes:        1234,
		VotePercentage:    45.67,
	}

	t.Run("mayor", func(t *testing.T) {
		withMate := record
		withMate.RunningMateName = strPtr("BELTRANO")
		table := NewResultTable(CandidacyMayor)
		table.Append(withMate)

		header := table.Header()
		assert.Equal(t, ColumnRunningMate, header[len(header)-1])
		for _, row := range table.Rows() {
			assert.Len(t, row, len(header))
			assert.Equal(t, "BELTRANO", row[len(row)-1])
		}
	})

	t.Run("councilor", func(t *testing.T) {
		table := NewResultTable(CandidacyCouncilor)
		table.Append(record)

		header := table.Header()
		assert.NotContains(t, header, ColumnRunningMate)
		matrix := table.Matrix()
		require.Len(t, matrix, 2)
		assert.Equal(t, header, matrix[0])
		assert.Equal(t, []string{"FULANO", "ABC", "15", "MACEIÓ", "AL", "01/02/1970", "Válido", "Eleito", "1234", "45.67"}, matrix[1])
	})
}

func TestHeaderIsNotShared(t *testing.T) {
	a := NewResultTable(CandidacyCouncilor).Header()
	a[0] = "changed"
	b := NewResultTable(CandidacyCouncilor).Header()
	assert.Equal(t, ColumnName, b[0])
}
