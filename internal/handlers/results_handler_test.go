package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"muniresults/internal/models"
	"muniresults/internal/storage"
)

type fakeArchive struct {
	runs       []storage.RunSummary
	candidates []models.CandidateRecord
	mismatches []models.MismatchRecord
	failures   []models.FailureRecord
	lastFilter storage.CandidateFilter
	err        error
}

func (f *fakeArchive) find(id string) (*storage.RunSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == id {
			return &f.runs[i], nil
		}
	}
	return nil, storage.ErrRunNotFound
}

func (f *fakeArchive) ListRuns() ([]storage.RunSummary, error) {
	return f.runs, f.err
}

func (f *fakeArchive) GetRun(id string) (*storage.RunSummary, error) {
	return f.find(id)
}

func (f *fakeArchive) ListCandidates(id string, filter storage.CandidateFilter) ([]models.CandidateRecord, error) {
	if _, err := f.find(id); err != nil {
		return nil, err
	}
	f.lastFilter = filter
	return f.candidates, nil
}

func (f *fakeArchive) ListMismatches(id string) ([]models.MismatchRecord, error) {
	if _, err := f.find(id); err != nil {
		return nil, err
	}
	return f.mismatches, nil
}

func (f *fakeArchive) ListFailures(id string) ([]models.FailureRecord, error) {
	if _, err := f.find(id); err != nil {
		return nil, err
	}
	return f.failures, nil
}

func newFakeArchive() *fakeArchive {
	mate := "MARIA"
	return &fakeArchive{
		runs: []storage.RunSummary{
			{ID: "run-1", Candidacy: models.CandidacyMayor, Year: 2024, Processed: 2, Records: 2, Mismatches: 1},
		},
		candidates: []models.CandidateRecord{
			{Name: "JOÃO", PartyAcronym: "MDB", BallotNumber: "15", MunicipalityName: "MACEIÓ", StateCode: "AL",
				TotalVotes: 1500, VotePercentage: 60.5, RunningMateName: &mate},
			{Name: "PEDRO", PartyAcronym: "PL", BallotNumber: "22", MunicipalityName: "MACEIÓ", StateCode: "AL",
				TotalVotes: 980, VotePercentage: 39.5},
		},
		mismatches: []models.MismatchRecord{
			{MunicipalityName: "RECIFE", StateCode: "PE", ComputedTotal: decimal.RequireFromString("99.5")},
		},
		failures: []models.FailureRecord{
			{MunicipalityName: "OLINDA", StateCode: "PE", Stage: models.StageFetch, Error: "boom"},
		},
	}
}

func serve(t *testing.T, archive Archive, target string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewResultsHandler(archive, zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	rec := serve(t, newFakeArchive(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestListRuns(t *testing.T) {
	rec := serve(t, newFakeArchive(), "/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.EqualValues(t, 1, body["total"])
	runs := body["runs"].([]interface{})
	assert.Equal(t, "run-1", runs[0].(map[string]interface{})["id"])
}

func TestGetRun(t *testing.T) {
	rec := serve(t, newFakeArchive(), "/api/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "mayor", body["candidacy"])
	assert.EqualValues(t, 2024, body["year"])
}

func TestUnknownRunIsNotFound(t *testing.T) {
	for _, path := range []string{
		"/api/runs/nope",
		"/api/runs/nope/candidates",
		"/api/runs/nope/mismatches",
		"/api/runs/nope/failures",
	} {
		t.Run(path, func(t *testing.T) {
			rec := serve(t, newFakeArchive(), path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestGetCandidatesPassesFilter(t *testing.T) {
	archive := newFakeArchive()
	rec := serve(t, archive, "/api/runs/run-1/candidates?state=al&municipality=MACEI%C3%93&party=MDB")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, storage.CandidateFilter{StateCode: "al", Municipality: "MACEIÓ", Party: "MDB"}, archive.lastFilter)

	body := decode(t, rec)
	assert.EqualValues(t, 2, body["total"])
	results := body["results"].([]interface{})
	first := results[0].(map[string]interface{})
	second := results[1].(map[string]interface{})
	assert.Equal(t, "JOÃO", first["name"])
	assert.EqualValues(t, 1500, first["total_votes"])
	assert.Equal(t, "MARIA", first["running_mate"])
	_, hasMate := second["running_mate"]
	assert.False(t, hasMate)
}

func TestGetMismatchesAndFailures(t *testing.T) {
	rec := serve(t, newFakeArchive(), "/api/runs/run-1/mismatches")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])

	rec = serve(t, newFakeArchive(), "/api/runs/run-1/failures")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["total"])
}

func TestArchiveErrorIsInternal(t *testing.T) {
	archive := newFakeArchive()
	archive.err = errors.New("disk on fire")

	rec := serve(t, archive, "/api/runs")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
