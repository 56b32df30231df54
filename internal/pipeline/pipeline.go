// Package pipeline drives a scrape run over the municipality catalog.
//
// Municipalities are processed one at a time: build the resource URL, fetch
// the document, flatten it and check its percentage total. In strict mode the
// first fetch or parse failure aborts the run and nothing is returned; in
// lenient mode the municipality is recorded as a failure and the run goes on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"muniresults/internal/models"
	"muniresults/internal/parser"
	"muniresults/internal/validator"
)

// Fetcher retrieves the raw document at a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// URLBuilder maps a municipality to its resource URL
type URLBuilder interface {
	For(m models.MunicipalityDescriptor, candidacy models.CandidacyType) string
}

// AbortError is returned when a municipality stops a strict run
type AbortError struct {
	Municipality models.MunicipalityDescriptor
	Stage        models.FailureStage
	Processed    int
	Err          error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted at %s (%s) after %d municipalities: %v", e.Municipality, e.Stage, e.Processed, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Options configures a Runner
type Options struct {
	Candidacy models.CandidacyType
	// Strict aborts the run on the first fetch or parse failure.
	Strict     bool
	Exclusions Exclusions
	// Limit stops after this many processed municipalities; zero means all.
	Limit  int
	Logger *zap.Logger
}

// Outcome is the product of a run that reached the done state
type Outcome struct {
	Table  *models.ResultTable
	Report *models.Report
}

// Runner executes scrape runs
type Runner struct {
	fetcher Fetcher
	urls    URLBuilder
	opts    Options
	logger  *zap.Logger
}

// New creates a new Runner
func New(fetcher Fetcher, urls URLBuilder, opts Options) (*Runner, error) {
	if err := models.ValidateCandidacyType(opts.Candidacy); err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative, got %d", opts.Limit)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher: fetcher,
		urls:    urls,
		opts:    opts,
		logger:  logger,
	}, nil
}

// run is the mutable state of a single execution.
type run struct {
	table  *models.ResultTable
	report *models.Report
	state  models.RunState
	// acc holds the percentage sum of the municipality being accumulated.
	acc validator.Accumulator
}

// Run processes municipalities in order. It returns an *AbortError when a
// strict run fails; the table is never returned partially in that case.
func (r *Runner) Run(ctx context.Context, municipalities []models.MunicipalityDescriptor) (*Outcome, error) {
	cur := &run{
		table: models.NewResultTable(r.opts.Candidacy),
		report: &models.Report{
			RunID:     uuid.NewString(),
			Candidacy: r.opts.Candidacy,
		},
	}
	log := r.logger.With(zap.String("run_id", cur.report.RunID), zap.String("candidacy", string(r.opts.Candidacy)))
	log.Info("scrape run starting",
		zap.Int("municipalities", len(municipalities)),
		zap.Bool("strict", r.opts.Strict),
	)

	for i, m := range municipalities {
		if r.opts.Limit > 0 && cur.report.Processed >= r.opts.Limit {
			log.Info("limit reached", zap.Int("limit", r.opts.Limit))
			break
		}
		r.transition(cur, models.StateIterating)
		mlog := log.With(
			zap.Int("index", i+1),
			zap.String("state", strings.ToUpper(m.StateCode)),
			zap.String("municipality", m.DisplayName),
		)
		mlog.Info("processing municipality")

		if reason, ok := r.opts.Exclusions.Excludes(m); ok {
			r.transition(cur, models.StateExcluded)
			mlog.Info("skipping excluded municipality", zap.String("reason", reason))
			cur.report.Excluded = append(cur.report.Excluded, m)
			continue
		}

		if err := r.processMunicipality(ctx, cur, m, mlog); err != nil {
			r.transition(cur, models.StateAborted)
			cur.report.State = cur.state
			log.Error("scrape run aborted", zap.Error(err))
			return nil, err
		}
	}

	r.transition(cur, models.StateDone)
	cur.report.State = cur.state
	log.Info("scrape run finished",
		zap.Int("processed", cur.report.Processed),
		zap.Int("excluded", len(cur.report.Excluded)),
		zap.Int("records", len(cur.table.Records)),
		zap.Int("mismatches", len(cur.report.Mismatches)),
		zap.Int("failures", len(cur.report.Failures)),
		zap.Bool("clean", cur.report.Clean()),
	)
	return &Outcome{Table: cur.table, Report: cur.report}, nil
}

// processMunicipality returns an error only when the run must abort.
func (r *Runner) processMunicipality(ctx context.Context, cur *run, m models.MunicipalityDescriptor, log *zap.Logger) error {
	url := r.urls.For(m, r.opts.Candidacy)

	r.transition(cur, models.StateFetching)
	raw, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return r.fail(cur, m, url, models.StageFetch, err, log)
	}

	r.transition(cur, models.StateParsing)
	res, err := parser.Parse(raw, m, r.opts.Candidacy)
	if err != nil {
		return r.fail(cur, m, url, models.StageParse, err, log)
	}

	r.transition(cur, models.StateAccumulating)
	cur.acc.Reset()
	for _, share := range res.Shares {
		cur.acc.Add(share)
	}
	if mismatch, ok := validator.Check(m, &cur.acc); !ok {
		log.Warn("vote percentages do not sum to 100", zap.String("total", mismatch.ComputedTotal.String()))
		cur.report.Mismatches = append(cur.report.Mismatches, mismatch)
	}
	cur.table.Append(res.Records...)
	cur.report.Processed++
	log.Debug("municipality accumulated",
		zap.Int("candidates", len(res.Records)),
		zap.Int("shares", cur.acc.Count()),
		zap.String("total", cur.acc.Total().String()),
	)
	return nil
}

func (r *Runner) fail(cur *run, m models.MunicipalityDescriptor, url string, stage models.FailureStage, err error, log *zap.Logger) error {
	// Cancellation is never downgraded to a per-municipality failure.
	if r.opts.Strict || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{Municipality: m, Stage: stage, Processed: cur.report.Processed, Err: err}
	}
	log.Warn("municipality failed, continuing", zap.String("stage", string(stage)), zap.Error(err))
	cur.report.Failures = append(cur.report.Failures, models.FailureRecord{
		MunicipalityName: m.DisplayName,
		StateCode:        strings.ToUpper(m.StateCode),
		URL:              url,
		Stage:            stage,
		Error:            err.Error(),
	})
	return nil
}

// transition moves cur to next. done and aborted have no successors.
func (r *Runner) transition(cur *run, next models.RunState) {
	if cur.state == next || cur.state.Terminal() {
		return
	}
	r.logger.Debug("state transition", zap.String("from", string(cur.state)), zap.String("to", string(next)))
	cur.state = next
}
