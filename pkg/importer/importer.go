// Package importer loads platform exports into the sales store
package importer

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/pkg/cache"
	"github.com/diogoqz/api-consulta-hotmart/pkg/fingerprint"
	"github.com/diogoqz/api-consulta-hotmart/pkg/graph"
	"github.com/diogoqz/api-consulta-hotmart/pkg/ingest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/kafka"
	"github.com/diogoqz/api-consulta-hotmart/pkg/metrics"
	"github.com/diogoqz/api-consulta-hotmart/pkg/models"
	"github.com/diogoqz/api-consulta-hotmart/pkg/tracing"
)

const lockTTL = 10 * time.Minute

// SaleWriter persists parsed records
type SaleWriter interface {
	UpsertMany(ctx context.Context, records []models.CustomerRecord) (int, error)
}

// RunStore records import runs
type RunStore interface {
	Create(ctx context.Context, platform models.Platform, fileName, fingerprint string) (*models.ImportRun, error)
	Complete(ctx context.Context, run *models.ImportRun, status models.ImportStatus) error
	Fail(ctx context.Context, run *models.ImportRun, cause error) error
	LatestSucceeded(ctx context.Context, platform models.Platform) (*models.ImportRun, error)
}

// Invalidator drops cached search results
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// ImportResult is the outcome of one import
type ImportResult struct {
	Run         *models.ImportRun `json:"run"`
	Unchanged   bool              `json:"unchanged"`
	RowsRead    int               `json:"rows_read"`
	RowsSkipped int               `json:"rows_skipped"`
	RowsWritten int               `json:"rows_written"`
	Duration    time.Duration     `json:"duration"`
}

// Importer runs fingerprint check, parse, upsert and the follow up notifications of an import
type Importer struct {
	sales     SaleWriter
	runs      RunStore
	logger    ectologger.Logger
	cache     Invalidator
	publisher kafka.Publisher
	projector graph.Projector
	locker    *cache.Locker
	readOpts  []ingest.Option
	now       func() time.Time
}

// Option configures an Importer
type Option func(*Importer)

// WithInvalidator drops cached searches after every successful import
func WithInvalidator(c Invalidator) Option {
	return func(i *Importer) { i.cache = c }
}

// WithPublisher emits a sales.imported event after every successful import
func WithPublisher(p kafka.Publisher) Option {
	return func(i *Importer) { i.publisher = p }
}

// WithProjector projects imported records into the customer graph
func WithProjector(p graph.Projector) Option {
	return func(i *Importer) { i.projector = p }
}

// WithLocker serializes imports of the same platform
func WithLocker(l *cache.Locker) Option {
	return func(i *Importer) { i.locker = l }
}

// WithReaderOptions configures the export readers
func WithReaderOptions(opts ...ingest.Option) Option {
	return func(i *Importer) { i.readOpts = opts }
}

// NewImporter creates an Importer
func NewImporter(sales SaleWriter, runs RunStore, logger ectologger.Logger, opts ...Option) *Importer {
	i := &Importer{
		sales:     sales,
		runs:      runs,
		logger:    logger,
		publisher: kafka.NoopPublisher{},
		projector: graph.NoopProjector{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import loads the export of platform read from r. An export whose content matches the last
// successful import of the platform is recorded as skipped unless force is set.
func (i *Importer) Import(ctx context.Context, platform models.Platform, fileName string, r io.Reader, force bool) (*ImportResult, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Importer.Import")
	defer span.End()

	reader, err := ingest.ReaderFor(platform, i.readOpts...)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if i.locker != nil {
		lock, err := i.locker.Acquire(ctx, "import:"+string(platform), lockTTL)
		if errors.Is(err, cache.ErrLockNotAcquired) {
			return nil, httperror.NewHTTPError(http.StatusConflict, "an import of this platform is already running")
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to acquire import lock")
		}
		defer lock.Release(ctx)
	}

	started := i.now()
	log := i.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":  platform,
		"file_name": fileName,
	})

	file, err := fingerprint.Read(r)
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "failed to read import file")
	}

	if !force {
		latest, err := i.runs.LatestSucceeded(ctx, platform)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.Fingerprint == file.Hash {
			return i.skip(ctx, platform, fileName, file.Hash, started)
		}
	}

	run, err := i.runs.Create(ctx, platform, fileName, file.Hash)
	if err != nil {
		return nil, err
	}

	parsed, err := reader.Read(ctx, file.Reader())
	if err != nil {
		return nil, i.fail(ctx, run, started, errors.Wrap(err, "failed to parse import file"), http.StatusBadRequest)
	}
	run.RowsRead = parsed.RowsRead
	run.RowsSkipped = parsed.RowsSkipped

	written, err := i.sales.UpsertMany(ctx, parsed.Records)
	if err != nil {
		return nil, i.fail(ctx, run, started, errors.Wrap(err, "failed to store sales"), http.StatusInternalServerError)
	}
	run.RowsWritten = written

	if err := i.runs.Complete(ctx, run, models.ImportStatusSucceeded); err != nil {
		return nil, err
	}

	i.afterImport(ctx, run, parsed.Records)

	duration := i.now().Sub(started)
	metrics.RecordImport(string(platform), string(run.Status), run.RowsWritten, run.RowsSkipped, duration.Seconds())

	log.WithFields(map[string]any{
		"rows_read":    run.RowsRead,
		"rows_skipped": run.RowsSkipped,
		"rows_written": run.RowsWritten,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Import finished")

	return &ImportResult{
		Run:         run,
		RowsRead:    run.RowsRead,
		RowsSkipped: run.RowsSkipped,
		RowsWritten: run.RowsWritten,
		Duration:    duration,
	}, nil
}

// afterImport runs the best effort steps. Their failures are logged and never fail the import.
func (i *Importer) afterImport(ctx context.Context, run *models.ImportRun, records []models.CustomerRecord) {
	log := i.logger.WithContext(ctx).WithField("run_id", run.ID)

	if i.cache != nil {
		if err := i.cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warnf("failed to invalidate search cache")
		}
	}

	err := i.publisher.PublishSalesImported(ctx, &kafka.SalesImportedEvent{
		RunID:       run.ID,
		Platform:    run.Platform,
		FileName:    run.FileName,
		Fingerprint: run.Fingerprint,
		RowsRead:    run.RowsRead,
		RowsSkipped: run.RowsSkipped,
		RowsWritten: run.RowsWritten,
	})
	if err != nil {
		log.WithError(err).Warnf("failed to publish import event")
	}

	if err := i.projector.Project(ctx, records); err != nil {
		log.WithError(err).Warnf("failed to project customers into graph")
	}
}

func (i *Importer) skip(ctx context.Context, platform models.Platform, fileName, hash string, started time.Time) (*ImportResult, error) {
	run, err := i.runs.Create(ctx, platform, fileName, hash)
	if err != nil {
		return nil, err
	}
	if err := i.runs.Complete(ctx, run, models.ImportStatusSkipped); err != nil {
		return nil, err
	}

	duration := i.now().Sub(started)
	metrics.RecordImport(string(platform), string(run.Status), 0, 0, duration.Seconds())

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"platform":    platform,
		"file_name":   fileName,
		"fingerprint": hash,
	}).Info("Import skipped, file unchanged since last import")

	return &ImportResult{Run: run, Unchanged: true, Duration: duration}, nil
}

func (i *Importer) fail(ctx context.Context, run *models.ImportRun, started time.Time, cause error, status int) error {
	if err := i.runs.Fail(ctx, run, cause); err != nil {
		i.logger.WithContext(ctx).WithError(err).Error("Failed to record failed import run")
	}
	metrics.RecordImport(string(run.Platform), string(models.ImportStatusFailed), 0, run.RowsSkipped, i.now().Sub(started).Seconds())
	i.logger.WithContext(ctx).WithError(cause).WithField("run_id", run.ID).Error("Import failed")

	if httperror.IsHTTPError(cause) {
		status = httperror.GetStatusCode(cause)
	}
	return httperror.WrapError(status, cause)
}
