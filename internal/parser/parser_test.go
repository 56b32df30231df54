package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muniresults/internal/models"
)

var maceio = models.MunicipalityDescriptor{StateCode: "al", ElectoralCode: 27014, DisplayName: "MACEIÓ"}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func strPtr(s string) *string { return &s }

func TestParseMayor(t *testing.T) {
	res, err := Parse(readFixture(t, "mayor.json"), maceio, models.CandidacyMayor)
	require.NoError(t, err)

	want := []models.CandidateRecord{
		{
			Name: "JOÃO DA SILVA", PartyAcronym: "MDB", BallotNumber: "15",
			MunicipalityName: "MACEIÓ", StateCode: "AL", BirthDate: "12/03/1970",
			CandidacyValidity: "Válido", Status: "Eleito", TotalVotes: 150000, VotePercentage: 60.5,
			RunningMateName: strPtr("MARIA D'ÁVILA FILHA"),
		},
		{
			Name: "PEDRO O GRANDE", PartyAcronym: "PL", BallotNumber: "22",
			MunicipalityName: "MACEIÓ", StateCode: "AL", BirthDate: "01/01/1965",
			CandidacyValidity: "Válido", Status: "Não eleito", TotalVotes: 80000, VotePercentage: 32.27,
			RunningMateName: strPtr("ANA"),
		},
		{
			Name: "JOSÉ & FILHOS", PartyAcronym: "PL", BallotNumber: "23",
			MunicipalityName: "MACEIÓ", StateCode: "AL", BirthDate: "05/05/1980",
			CandidacyValidity: "Válido", Status: "Não eleito", TotalVotes: 17933, VotePercentage: 7.23,
			RunningMateName: strPtr("CARLA"),
		},
	}
	if diff := cmp.Diff(want, res.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, res.Shares, 3)
	assert.Equal(t, "60.5", res.Shares[0].String())
	assert.Equal(t, "32.2666666667", res.Shares[1].String())

	total := decimal.Sum(res.Shares[0], res.Shares[1:]...)
	assert.Equal(t, "100", total.String())
}

func TestParseCouncilorOmitsRunningMate(t *testing.T) {
	res, err := Parse(readFixture(t, "councilor.json"), maceio, models.CandidacyCouncilor)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	for _, r := range res.Records {
		assert.Nil(t, r.RunningMateName, r.Name)
	}
	assert.Equal(t, int64(3241), res.Records[1].TotalVotes, "numeric vap is accepted")
	assert.Equal(t, "PSOL", res.Records[2].PartyAcronym)
}

func TestParseMissingFields(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		candidacy models.CandidacyType
		field     string
	}{
		{
			name:  "no race",
			doc:   `{"ele": "619"}`,
			field: "carg",
		},
		{
			name:  "empty race list",
			doc:   `{"carg": []}`,
			field: "carg",
		},
		{
			name:  "no coalitions",
			doc:   `{"carg": [{"cd": "11"}]}`,
			field: "carg[0].agr",
		},
		{
			name:  "no parties",
			doc:   `{"carg": [{"agr": [{"n": "1"}]}]}`,
			field: "carg[0].agr[0].par",
		},
		{
			name:  "no candidates",
			doc:   `{"carg": [{"agr": [{"par": [{"sg": "PT"}]}]}]}`,
			field: "carg[0].agr[0].par[0].cand",
		},
		{
			name:  "no high precision percentage",
			doc:   `{"carg": [{"agr": [{"par": [{"sg": "PT", "cand": [{"n": "13", "nmu": "A", "st": "Eleito", "vap": "1", "pvap": "100,00"}]}]}]}]}`,
			field: "carg[0].agr[0].par[0].cand[0].pvapn",
		},
		{
			name:      "mayor without running mate",
			doc:       `{"carg": [{"agr": [{"par": [{"sg": "PT", "cand": [{"n": "13", "nmu": "A", "st": "Eleito", "vap": "1", "pvap": "100,00", "pvapn": "100,0000000000"}]}]}]}]}`,
			candidacy: models.CandidacyMayor,
			field:     "carg[0].agr[0].par[0].cand[0].vs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidacy := tt.candidacy
			if candidacy == "" {
				candidacy = models.CandidacyCouncilor
			}
			_, err := Parse([]byte(tt.doc), maceio, candidacy)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.field, pe.Field)
			assert.ErrorIs(t, err, ErrMissingField)
		})
	}
}

func TestParseInvalidNumbers(t *testing.T) {
	doc := `{"carg": [{"agr": [{"par": [{"sg": "PT", "cand": [{"n": "13", "nmu": "A", "st": "Eleito", "vap": "1", "pvap": "cem", "pvapn": "100,0"}]}]}]}]}`
	_, err := Parse([]byte(doc), maceio, models.CandidacyCouncilor)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "carg[0].agr[0].par[0].cand[0].pvap", pe.Field)
}

func TestParseMalformedDocument(t *testing.T) {
	_, err := Parse([]byte(`[1, 2`), maceio, models.CandidacyMayor)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "$", pe.Field)
}

func TestCleanName(t *testing.T) {
	tests := map[string]string{
		"FULANO&#09;DE TAL":     "FULANODE TAL",
		"BELTRANO, JR":          "BELTRANO JR",
		"A, B, C":               "A B C",
		"JOS&Eacute;":           "JOSÉ",
		"JOA\u0303O":            "JOÃO",
		"SEM ALTERAÇÃO":         "SEM ALTERAÇÃO",
		"D&#39;ÁVILA &amp; CIA": "D'ÁVILA & CIA",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanName(in), in)
	}
}

func TestDecimalCommaConversion(t *testing.T) {
	pct, err := parsePercentage(" 12,34 ")
	require.NoError(t, err)
	assert.InDelta(t, 12.34, pct, 1e-12)

	share, err := parseShare("33,3333333333")
	require.NoError(t, err)
	assert.Equal(t, "33.3333333333", share.String())

	votes, err := parseVotes("1.234.567")
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), votes)
}
