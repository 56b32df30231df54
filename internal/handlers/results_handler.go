package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"muniresults/internal/models"
	"muniresults/internal/storage"
)

// Archive is the read side of the run archive
type Archive interface {
	ListRuns() ([]storage.RunSummary, error)
	GetRun(runID string) (*storage.RunSummary, error)
	ListCandidates(runID string, filter storage.CandidateFilter) ([]models.CandidateRecord, error)
	ListMismatches(runID string) ([]models.MismatchRecord, error)
	ListFailures(runID string) ([]models.FailureRecord, error)
}

type ResultsHandler struct {
	archive Archive
	logger  *zap.Logger
}

func NewResultsHandler(archive Archive, logger *zap.Logger) *ResultsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultsHandler{
		archive: archive,
		logger:  logger,
	}
}

// Routes mounts the read-only results API.
func (h *ResultsHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api/runs", func(r chi.Router) {
		r.Get("/", h.HandleListRuns)
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", h.HandleGetRun)
			r.Get("/candidates", h.HandleGetCandidates)
			r.Get("/mismatches", h.HandleGetMismatches)
			r.Get("/failures", h.HandleGetFailures)
		})
	})
	return r
}

func (h *ResultsHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *ResultsHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.archive.ListRuns()
	if err != nil {
		h.fail(w, "Error fetching runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": len(runs),
		"runs":  runs,
	})
}

func (h *ResultsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.archive.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, "Error fetching run", err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// candidateResult is the API shape of a record; running_mate is omitted for councilors.
type candidateResult struct {
	Name              string  `json:"name"`
	Party             string  `json:"party"`
	Number            string  `json:"number"`
	Municipality      string  `json:"municipality"`
	State             string  `json:"state"`
	BirthDate         string  `json:"birth_date"`
	CandidacyValidity string  `json:"candidacy_validity"`
	Status            string  `json:"status"`
	TotalVotes        int64   `json:"total_votes"`
	VotePercentage    float64 `json:"vote_percentage"`
	RunningMate       *string `json:"running_mate,omitempty"`
}

func (h *ResultsHandler) HandleGetCandidates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.CandidateFilter{
		StateCode:    q.Get("state"),
		Municipality: q.Get("municipality"),
		Party:        q.Get("party"),
	}

	records, err := h.archive.ListCandidates(chi.URLParam(r, "runID"), filter)
	if err != nil {
		h.fail(w, "Error fetching candidates", err)
		return
	}

	results := make([]candidateResult, len(records))
	for i, rec := range records {
		results[i] = candidateResult{
			Name:              rec.Name,
			Party:             rec.PartyAcronym,
			Number:            rec.BallotNumber,
			Municipality:      rec.MunicipalityName,
			State:             rec.StateCode,
			BirthDate:         rec.BirthDate,
			CandidacyValidity: rec.CandidacyValidity,
			Status:            rec.Status,
			TotalVotes:        rec.TotalVotes,
			VotePercentage:    rec.VotePercentage,
			RunningMate:       rec.RunningMateName,
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   len(results),
		"results": results,
	})
}

func (h *ResultsHandler) HandleGetMismatches(w http.ResponseWriter, r *http.Request) {
	mismatches, err := h.archive.ListMismatches(chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, "Error fetching mismatches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":      len(mismatches),
		"mismatches": mismatches,
	})
}

func (h *ResultsHandler) HandleGetFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.archive.ListFailures(chi.URLParam(r, "runID"))
	if err != nil {
		h.fail(w, "Error fetching failures", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":    len(failures),
		"failures": failures,
	})
}

func (h *ResultsHandler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	h.logger.Error(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
