package importrun

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

const table = "import_runs"

var columns = []string{
	"id", "platform", "file_name", "fingerprint", "status",
	"rows_read", "rows_skipped", "rows_written", "error", "started_at", "finished_at",
}

type runRow struct {
	ID          string              `db:"id"`
	Platform    models.Platform     `db:"platform"`
	FileName    string              `db:"file_name"`
	Fingerprint string              `db:"fingerprint"`
	Status      models.ImportStatus `db:"status"`
	RowsRead    int                 `db:"rows_read"`
	RowsSkipped int                 `db:"rows_skipped"`
	RowsWritten int                 `db:"rows_written"`
	Error       sql.NullString      `db:"error"`
	StartedAt   database.NullTime   `db:"started_at"`
	FinishedAt  database.NullTime   `db:"finished_at"`
}

func (row runRow) run() *models.ImportRun {
	run := &models.ImportRun{
		ID:          row.ID,
		Platform:    row.Platform,
		FileName:    row.FileName,
		Fingerprint: row.Fingerprint,
		Status:      row.Status,
		RowsRead:    row.RowsRead,
		RowsSkipped: row.RowsSkipped,
		RowsWritten: row.RowsWritten,
		FinishedAt:  row.FinishedAt.Ptr(),
	}
	if row.StartedAt.Time != nil {
		run.StartedAt = *row.StartedAt.Time
	}
	if row.Error.Valid {
		msg := row.Error.String
		run.Error = &msg
	}
	return run
}

// Repository handles import run persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
	now    func() time.Time
}

// NewRepository creates a new import run repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create records a running import of file
func (r *Repository) Create(ctx context.Context, platform models.Platform, fileName, fingerprint string) (*models.ImportRun, error) {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Create")
	defer span.End()

	run := &models.ImportRun{
		ID:          uuid.NewString(),
		Platform:    platform,
		FileName:    fileName,
		Fingerprint: fingerprint,
		Status:      models.ImportStatusRunning,
		StartedAt:   r.now(),
	}

	ib := database.NewInsertBuilder(r.db.Dialect())
	ib.InsertInto(table).Cols(columns...)
	ib.Values(run.ID, run.Platform, run.FileName, run.Fingerprint, run.Status, 0, 0, 0, nil, run.StartedAt, nil)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"platform":  platform,
			"file_name": fileName,
		}).Error("Failed to create import run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create import run")
	}

	return run, nil
}

// Complete marks run as finished with status and its row counters
func (r *Repository) Complete(ctx context.Context, run *models.ImportRun, status models.ImportStatus) error {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Complete")
	defer span.End()

	return r.finish(ctx, run, status, nil)
}

// Fail marks run as failed with cause
func (r *Repository) Fail(ctx context.Context, run *models.ImportRun, cause error) error {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.Fail")
	defer span.End()

	msg := cause.Error()
	return r.finish(ctx, run, models.ImportStatusFailed, &msg)
}

func (r *Repository) finish(ctx context.Context, run *models.ImportRun, status models.ImportStatus, cause *string) error {
	finished := r.now()

	ub := database.NewUpdateBuilder(r.db.Dialect())
	ub.Update(table)
	ub.Set(
		ub.Assign("status", status),
		ub.Assign("rows_read", run.RowsRead),
		ub.Assign("rows_skipped", run.RowsSkipped),
		ub.Assign("rows_written", run.RowsWritten),
		ub.Assign("error", cause),
		ub.Assign("finished_at", finished),
	)
	ub.Where(ub.Equal("id", run.ID))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": run.ID}).Error("Failed to finish import run")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to finish import run")
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "import run not found")
	}

	run.Status = status
	run.Error = cause
	run.FinishedAt = &finished
	return nil
}

// LatestSucceeded returns the most recent successful run of platform, or nil when there is none
func (r *Repository) LatestSucceeded(ctx context.Context, platform models.Platform) (*models.ImportRun, error) {
	ctx, span := tracing.StartSpan(ctx, "importrun.Repository.LatestSucceeded")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Dialect())
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("platform", platform),
		sb.Equal("status", models.ImportStatusSucceeded),
	)
	sb.OrderBy("started_at").Desc()
	sb.Limit(1)

	query, args := sb.Build()
	var row runRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get latest import run")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get latest import run")
	}

	return row.run(), nil
}
