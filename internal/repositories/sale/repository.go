package sale

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

// upsertBatchSize bounds the rows of one INSERT so statements stay under the bind parameter limits
const upsertBatchSize = 200

// Repository handles sale persistence
type Repository struct {
	db      database.DB
	logger  ectologger.Logger
	builder *matching.ViewBuilder
}

// NewRepository creates a new sale repository. builder supplies the active policy of store side queries.
func NewRepository(db database.DB, logger ectologger.Logger, builder *matching.ViewBuilder) *Repository {
	if builder == nil {
		builder = matching.NewViewBuilder(nil, nil)
	}
	return &Repository{
		db:      db,
		logger:  logger,
		builder: builder,
	}
}

// UpsertMany inserts records or replaces the stored ones with the same platform and key.
// Later duplicates in records win. It returns the number of distinct records written.
func (r *Repository) UpsertMany(ctx context.Context, records []models.CustomerRecord) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.Repository.UpsertMany")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordQuery("sale_upsert", time.Since(start).Seconds()) }()

	log := r.logger.WithContext(ctx).WithFields(map[string]any{"records": len(records)})

	unique := dedupe(records)
	now := time.Now().UTC()

	err := database.RunInTx(ctx, r.db, func(ctx context.Context, tx database.Tx) error {
		for begin := 0; begin < len(unique); begin += upsertBatchSize {
			end := min(begin+upsertBatchSize, len(unique))
			query, args := r.upsertQuery(unique[begin:end], now)
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("Failed to upsert sales")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to save sales")
	}

	log.WithFields(map[string]any{"written": len(unique)}).Info("Upserted sales")
	return len(unique), nil
}

func (r *Repository) upsertQuery(records []models.CustomerRecord, now time.Time) (string, []any) {
	cols := make([]string, 0, 3+len(recordColumns)+len(searchColumns)+2)
	cols = append(cols, "id", "record_key")
	cols = append(cols, recordColumns...)
	cols = append(cols, searchColumns...)
	cols = append(cols, "created_at", "updated_at")

	ib := database.NewInsertBuilder(r.db.Dialect())
	ib.InsertInto(table).Cols(cols...)
	for _, rec := range records {
		values := make([]any, 0, len(cols))
		values = append(values, uuid.NewString(), rec.Key())
		values = append(values, recordValues(rec)...)
		values = append(values, searchValues(rec)...)
		values = append(values, now, now)
		ib.Values(values...)
	}

	update := make([]string, 0, len(recordColumns)+len(searchColumns)+1)
	update = append(update, recordColumns...)
	update = append(update, searchColumns...)
	update = append(update, "updated_at")
	ib.OnConflictUpdate([]string{"platform", "record_key"}, update)

	return ib.Build()
}

// dedupe keeps the last record of every platform and key, in first seen order
func dedupe(records []models.CustomerRecord) []models.CustomerRecord {
	index := make(map[string]int, len(records))
	out := make([]models.CustomerRecord, 0, len(records))
	for _, rec := range records {
		id := string(rec.Platform) + "\x00" + rec.Key()
		if i, ok := index[id]; ok {
			out[i] = rec
			continue
		}
		index[id] = len(out)
		out = append(out, rec)
	}
	return out
}

// ListCandidates returns every stored sale
func (r *Repository) ListCandidates(ctx context.Context) ([]models.CustomerRecord, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.Repository.ListCandidates")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordQuery("sale_list", time.Since(start).Seconds()) }()

	sb := database.NewSelectBuilder(r.db.Dialect())
	sb.Select(recordColumns...)
	sb.From(table)
	sb.OrderBy("platform", "record_key")

	query, args := sb.Build()
	var rows []saleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sales")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list sales")
	}

	out := make([]models.CustomerRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

// Count returns the number of stored sales
func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.Repository.Count")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Dialect())
	sb.Select("COUNT(*)")
	sb.From(table)

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count sales")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count sales")
	}
	return count, nil
}

// DatasetVersion identifies the current content of the store. It changes whenever sales are written.
func (r *Repository) DatasetVersion(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.Repository.DatasetVersion")
	defer span.End()

	sb := database.NewSelectBuilder(r.db.Dialect())
	sb.Select("COUNT(*) AS total", "MAX(updated_at) AS updated")
	sb.From(table)

	query, args := sb.Build()
	var version struct {
		Total   int               `db:"total"`
		Updated database.NullTime `db:"updated"`
	}
	if err := r.db.GetContext(ctx, &version, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to read dataset version")
		return "", httperror.NewHTTPError(http.StatusInternalServerError, "failed to read dataset version")
	}

	updated := int64(0)
	if version.Updated.Time != nil {
		updated = version.Updated.Time.UnixNano()
	}
	return fmt.Sprintf("%d-%d", version.Total, updated), nil
}

// PlatformStats returns the counters of every platform, including platforms without sales
func (r *Repository) PlatformStats(ctx context.Context) ([]models.PlatformStats, error) {
	ctx, span := tracing.StartSpan(ctx, "sale.Repository.PlatformStats")
	defer span.End()

	start := time.Now()
	defer func() { metrics.RecordQuery("sale_platform_stats", time.Since(start).Seconds()) }()

	sb := database.NewSelectBuilder(r.db.Dialect())
	active := activeExpr(sb.SelectBuilder, r.builder.Policy())
	sb.Select(
		"platform",
		"COUNT(*) AS total",
		"COUNT(DISTINCT CASE WHEN search_name <> '' THEN search_name END) AS unique_clients",
		"COUNT(DISTINCT CASE WHEN email_lower <> '' THEN email_lower END) AS unique_emails",
		"COALESCE(SUM(value), 0) AS total_value",
		fmt.Sprintf("COALESCE(SUM(%s), 0) AS active", active),
		"COALESCE(SUM(CASE WHEN status_norm LIKE '%cancel%' OR status_norm LIKE '%refund%' THEN 1 ELSE 0 END), 0) AS cancelled",
	)
	sb.From(table)
	sb.GroupBy("platform")

	query, args := sb.Build()
	var rows []models.PlatformStats
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to compute platform stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to compute platform stats")
	}

	byPlatform := make(map[models.Platform]models.PlatformStats, len(rows))
	for _, row := range rows {
		byPlatform[row.Platform] = row
	}

	out := make([]models.PlatformStats, 0, len(models.Platforms))
	for _, platform := range models.Platforms {
		stats, ok := byPlatform[platform]
		if !ok {
			stats = models.PlatformStats{Platform: platform}
		}
		out = append(out, stats)
	}
	return out, nil
}
