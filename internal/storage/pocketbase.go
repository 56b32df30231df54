package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/daos"
	"github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/migrations/logs"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"
	"github.com/pocketbase/pocketbase/tools/migrate"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"muniresults/internal/models"
)

const (
	collectionRuns       = "scrape_runs"
	collectionCandidates = "candidate_results"
	collectionMismatches = "percentage_mismatches"
	collectionFailures   = "municipality_failures"
)

// ErrRunNotFound is returned when a run id is unknown to the archive.
var ErrRunNotFound = errors.New("run not found")

// RunSummary describes one archived run
type RunSummary struct {
	ID         string               `json:"id"`
	Candidacy  models.CandidacyType `json:"candidacy"`
	Year       int                  `json:"year"`
	OutputPath string               `json:"output_path"`
	Processed  int                  `json:"processed"`
	Records    int                  `json:"records"`
	Mismatches int                  `json:"mismatches"`
	Failures   int                  `json:"failures"`
	Created    string               `json:"created"`
}

// CandidateFilter narrows ListCandidates; empty fields match everything
type CandidateFilter struct {
	StateCode    string
	Municipality string
	Party        string
}

// Archive keeps finished runs in a PocketBase data directory
type Archive struct {
	app    *core.BaseApp
	logger *zap.Logger
}

// OpenArchive bootstraps PocketBase in dataDir and ensures the archive collections exist.
func OpenArchive(dataDir string, logger *zap.Logger) (*Archive, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := core.NewBaseApp(core.BaseAppConfig{
		DataDir: dataDir,
	})

	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
	}
	if err := runMigrations(app); err != nil {
		return nil, fmt.Errorf("failed to apply PocketBase migrations: %w", err)
	}

	a := &Archive{app: app, logger: logger}
	if err := a.ensureCollections(); err != nil {
		return nil, fmt.Errorf("failed to ensure collections exist: %w", err)
	}
	logger.Debug("archive opened", zap.String("dir", dataDir))
	return a, nil
}

func runMigrations(app core.App) error {
	connections := []struct {
		db   *dbx.DB
		list migrate.MigrationsList
	}{
		{db: app.DB(), list: migrations.AppMigrations},
		{db: app.LogsDB(), list: logs.LogsMigrations},
	}
	for _, c := range connections {
		runner, err := migrate.NewRunner(c.db, c.list)
		if err != nil {
			return err
		}
		if _, err := runner.Up(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the PocketBase databases.
func (a *Archive) Close() error {
	return a.app.ResetBootstrapState()
}

func (a *Archive) ensureCollections() error {
	text := func(name string, required bool) *schema.SchemaField {
		return &schema.SchemaField{Name: name, Type: schema.FieldTypeText, Required: required}
	}
	number := func(name string) *schema.SchemaField {
		return &schema.SchemaField{Name: name, Type: schema.FieldTypeNumber}
	}

	collections := []*pbModels.Collection{
		{
			Name: collectionRuns,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				text("run_id", true),
				text("candidacy", true),
				number("year"),
				text("output_path", false),
				number("processed"),
				number("records"),
				number("mismatches"),
				number("failures"),
			),
		},
		{
			Name: collectionCandidates,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				text("run_id", true),
				text("name", true),
				text("party", false),
				text("number", false),
				text("municipality", true),
				text("state", true),
				text("birth_date", false),
				text("validity", false),
				text("status", false),
				number("total_votes"),
				number("vote_percentage"),
				text("running_mate", false),
			),
		},
		{
			Name: collectionMismatches,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				text("run_id", true),
				text("municipality", true),
				text("state", false),
				text("computed_total", true),
			),
		},
		{
			Name: collectionFailures,
			Type: pbModels.CollectionTypeBase,
			Schema: schema.NewSchema(
				text("run_id", true),
				text("municipality", true),
				text("state", false),
				text("url", false),
				text("stage", false),
				text("error", false),
			),
		},
	}

	for _, c := range collections {
		if _, err := a.app.Dao().FindCollectionByNameOrId(c.Name); err == nil {
			continue
		}
		if err := a.app.Dao().SaveCollection(c); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", c.Name, err)
		}
		a.logger.Debug("created collection", zap.String("collection", c.Name))
	}
	return nil
}

// SaveRun stores a finished run in one transaction.
func (a *Archive) SaveRun(year int, outputPath string, table *models.ResultTable, report *models.Report) error {
	return a.app.Dao().RunInTransaction(func(txDao *daos.Dao) error {
		find := func(name string) (*pbModels.Collection, error) {
			c, err := txDao.FindCollectionByNameOrId(name)
			if err != nil {
				return nil, fmt.Errorf("failed to find collection %s: %w", name, err)
			}
			return c, nil
		}

		runs, err := find(collectionRuns)
		if err != nil {
			return err
		}
		run := pbModels.NewRecord(runs)
		run.Set("run_id", report.RunID)
		run.Set("candidacy", string(table.Candidacy))
		run.Set("year", year)
		run.Set("output_path", outputPath)
		run.Set("processed", report.Processed)
		run.Set("records", len(table.Records))
		run.Set("mismatches", len(report.Mismatches))
		run.Set("failures", len(report.Failures))
		if err := txDao.SaveRecord(run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}

		candidates, err := find(collectionCandidates)
		if err != nil {
			return err
		}
		for _, r := range table.Records {
			record := pbModels.NewRecord(candidates)
			record.Set("run_id", report.RunID)
			record.Set("name", r.Name)
			record.Set("party", r.PartyAcronym)
			record.Set("number", r.BallotNumber)
			record.Set("municipality", r.MunicipalityName)
			record.Set("state", r.StateCode)
			record.Set("birth_date", r.BirthDate)
			record.Set("validity", r.CandidacyValidity)
			record.Set("status", r.Status)
			record.Set("total_votes", r.TotalVotes)
			record.Set("vote_percentage", r.VotePercentage)
			if r.RunningMateName != nil {
				record.Set("running_mate", *r.RunningMateName)
			}
			if err := txDao.SaveRecord(record); err != nil {
				return fmt.Errorf("failed to save candidate %s: %w", r.Name, err)
			}
		}

		mismatches, err := find(collectionMismatches)
		if err != nil {
			return err
		}
		for _, m := range report.Mismatches {
			record := pbModels.NewRecord(mismatches)
			record.Set("run_id", report.RunID)
			record.Set("municipality", m.MunicipalityName)
			record.Set("state", m.StateCode)
			record.Set("computed_total", m.ComputedTotal.String())
			if err := txDao.SaveRecord(record); err != nil {
				return fmt.Errorf("failed to save mismatch %s: %w", m.MunicipalityName, err)
			}
		}

		failures, err := find(collectionFailures)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			record := pbModels.NewRecord(failures)
			record.Set("run_id", report.RunID)
			record.Set("municipality", f.MunicipalityName)
			record.Set("state", f.StateCode)
			record.Set("url", f.URL)
			record.Set("stage", string(f.Stage))
			record.Set("error", f.Error)
			if err := txDao.SaveRecord(record); err != nil {
				return fmt.Errorf("failed to save failure %s: %w", f.MunicipalityName, err)
			}
		}

		a.logger.Info("run archived",
			zap.String("run_id", report.RunID),
			zap.Int("records", len(table.Records)),
		)
		return nil
	})
}

// ListRuns returns every archived run, newest first.
func (a *Archive) ListRuns() ([]RunSummary, error) {
	records, err := a.app.Dao().FindRecordsByFilter(collectionRuns, "id != ''", "-created", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}
	runs := make([]RunSummary, len(records))
	for i, r := range records {
		runs[i] = runSummary(r)
	}
	return runs, nil
}

// GetRun returns one archived run.
func (a *Archive) GetRun(runID string) (*RunSummary, error) {
	record, err := a.app.Dao().FindFirstRecordByData(collectionRuns, "run_id", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run %s: %w", runID, err)
	}
	s := runSummary(record)
	return &s, nil
}

func runSummary(r *pbModels.Record) RunSummary {
	return RunSummary{
		ID:         r.GetString("run_id"),
		Candidacy:  models.CandidacyType(r.GetString("candidacy")),
		Year:       r.GetInt("year"),
		OutputPath: r.GetString("output_path"),
		Processed:  r.GetInt("processed"),
		Records:    r.GetInt("records"),
		Mismatches: r.GetInt("mismatches"),
		Failures:   r.GetInt("failures"),
		Created:    r.GetString("created"),
	}
}

// ListCandidates returns the candidate records of a run in insertion order.
func (a *Archive) ListCandidates(runID string, filter CandidateFilter) ([]models.CandidateRecord, error) {
	run, err := a.GetRun(runID)
	if err != nil {
		return nil, err
	}
	collection, err := a.app.Dao().FindCollectionByNameOrId(collectionCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	exp := dbx.HashExp{"run_id": runID}
	if filter.StateCode != "" {
		exp["state"] = strings.ToUpper(filter.StateCode)
	}
	if filter.Municipality != "" {
		exp["municipality"] = filter.Municipality
	}
	if filter.Party != "" {
		exp["party"] = filter.Party
	}

	var records []*pbModels.Record
	if err := a.app.Dao().RecordQuery(collection).AndWhere(exp).OrderBy("rowid ASC").All(&records); err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	withMate := run.Candidacy.HasRunningMate()
	out := make([]models.CandidateRecord, len(records))
	for i, r := range records {
		out[i] = models.CandidateRecord{
			Name:              r.GetString("name"),
			PartyAcronym:      r.GetString("party"),
			BallotNumber:      r.GetString("number"),
			MunicipalityName:  r.GetString("municipality"),
			StateCode:         r.GetString("state"),
			BirthDate:         r.GetString("birth_date"),
			CandidacyValidity: r.GetString("validity"),
			Status:            r.GetString("status"),
			TotalVotes:        int64(r.GetInt("total_votes")),
			VotePercentage:    r.GetFloat("vote_percentage"),
		}
		if withMate {
			mate := r.GetString("running_mate")
			out[i].RunningMateName = &mate
		}
	}
	return out, nil
}

// ListMismatches returns the percentage mismatches of a run.
func (a *Archive) ListMismatches(runID string) ([]models.MismatchRecord, error) {
	if _, err := a.GetRun(runID); err != nil {
		return nil, err
	}
	records, err := a.app.Dao().FindRecordsByFilter(
		collectionMismatches, "run_id = {:run}", "", 0, 0, dbx.Params{"run": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch mismatches: %w", err)
	}

	out := make([]models.MismatchRecord, 0, len(records))
	for _, r := range records {
		total, err := decimal.NewFromString(r.GetString("computed_total"))
		if err != nil {
			return nil, fmt.Errorf("corrupt total for %s: %w", r.GetString("municipality"), err)
		}
		out = append(out, models.MismatchRecord{
			MunicipalityName: r.GetString("municipality"),
			StateCode:        r.GetString("state"),
			ComputedTotal:    total,
		})
	}
	return out, nil
}

// ListFailures returns the lenient-mode failures of a run.
func (a *Archive) ListFailures(runID string) ([]models.FailureRecord, error) {
	if _, err := a.GetRun(runID); err != nil {
		return nil, err
	}
	records, err := a.app.Dao().FindRecordsByFilter(
		collectionFailures, "run_id = {:run}", "", 0, 0, dbx.Params{"run": runID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch failures: %w", err)
	}

	out := make([]models.FailureRecord, len(records))
	for i, r := range records {
		out[i] = models.FailureRecord{
			MunicipalityName: r.GetString("municipality"),
			StateCode:        r.GetString("state"),
			URL:              r.GetString("url"),
			Stage:            models.FailureStage(r.GetString("stage")),
			Error:            r.GetString("error"),
		}
	}
	return out, nil
}
