// Package app wires the service components and their startup order
package app

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/diogoqz/api-consulta-hotmart/config"
	"github.com/diogoqz/api-consulta-hotmart/db/migrations"
	"github.com/diogoqz/api-consulta-hotmart/internal/repositories/importrun"
	"github.com/diogoqz/api-consulta-hotmart/internal/repositories/sale"
	"github.com/diogoqz/api-consulta-hotmart/pkg/cache"
	"github.com/diogoqz/api-consulta-hotmart/pkg/database"
	"github.com/diogoqz/api-consulta-hotmart/pkg/graph"
	"github.com/diogoqz/api-consulta-hotmart/pkg/grouping"
	"github.com/diogoqz/api-consulta-hotmart/pkg/importer"
	"github.com/diogoqz/api-consulta-hotmart/pkg/ingest"
	"github.com/diogoqz/api-consulta-hotmart/pkg/kafka"
	"github.com/diogoqz/api-consulta-hotmart/pkg/matching"
	"github.com/diogoqz/api-consulta-hotmart/pkg/normalizers"
	"github.com/diogoqz/api-consulta-hotmart/pkg/search"
	"github.com/diogoqz/api-consulta-hotmart/pkg/startup"
)

// Dependency names, in the order they start
const (
	DependencyDatabase = "database"
	DependencyCache    = "cache"
	DependencyKafka    = "kafka"
	DependencyGraph    = "graph"
	// DependencyComponents builds the domain components once the infrastructure is up
	DependencyComponents = "components"
)

// App holds the started infrastructure and the components built on it
type App struct {
	Config *config.Config
	Logger ectologger.Logger

	DB        database.DB
	Store     cache.Store
	Publisher kafka.Publisher
	Graph     *graph.Client

	Builder     *matching.ViewBuilder
	Sales       *sale.Repository
	Runs        *importrun.Repository
	Engine      *search.Engine
	SearchCache *cache.SearchCache
	Summaries   *cache.SummaryStore
	Projection  *graph.CustomerProjection
	Importer    *importer.Importer

	startup *startup.Startup
}

// New registers the infrastructure dependencies of cfg. Nothing connects until Start.
func New(cfg *config.Config, logger ectologger.Logger) *App {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		startup: startup.NewStartup(logger, cfg.StartupMaxAttempts),
	}

	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyDatabase,
		StartFunc: a.startDatabase,
		StopFunc: func(context.Context) error {
			if a.DB == nil {
				return nil
			}
			return a.DB.Close()
		},
	})
	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyCache,
		StartFunc: a.startCache,
		StopFunc: func(context.Context) error {
			if a.Store == nil {
				return nil
			}
			return a.Store.Close()
		},
	})
	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyKafka,
		StartFunc: a.startKafka,
		StopFunc: func(context.Context) error {
			if closer, ok := a.Publisher.(interface{ Close() error }); ok {
				return closer.Close()
			}
			return nil
		},
	})
	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyGraph,
		StartFunc: a.startGraph,
		StopFunc: func(ctx context.Context) error {
			if a.Graph == nil {
				return nil
			}
			return a.Graph.Close(ctx)
		},
	})

	a.startup.AddDependency(&startup.Dependency{
		Name:      DependencyComponents,
		Requires:  []string{DependencyDatabase, DependencyCache, DependencyKafka, DependencyGraph},
		StartFunc: func(context.Context) error { return a.wire() },
	})

	return a
}

// AddDependency registers an extra dependency, such as the HTTP server. It should require DependencyComponents.
func (a *App) AddDependency(dep startup.StartupDependency) {
	a.startup.AddDependency(dep)
}

// Start connects every dependency in order, then builds the domain components
func (a *App) Start(ctx context.Context) error {
	return a.startup.Start(ctx)
}

// Stop stops the started dependencies in reverse order
func (a *App) Stop(ctx context.Context) error {
	return a.startup.Stop(ctx)
}

func (a *App) startDatabase(ctx context.Context) error {
	db, err := database.Open(ctx, database.Config{
		Driver:          a.Config.DatabaseDriver,
		DSN:             a.Config.DatabaseDSN,
		MaxOpenConns:    a.Config.DatabaseMaxOpenConns,
		MaxIdleConns:    a.Config.DatabaseMaxIdleConns,
		ConnMaxLifetime: a.Config.DatabaseConnMaxLifetime,
	}, a.Logger)
	if err != nil {
		return err
	}

	migrator := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		Migrations:   migrations.FS,
		Version:      uint(a.Config.DatabaseMigrationVersion),
		Force:        a.Config.DatabaseMigrationForce,
		AutoRollback: a.Config.DatabaseMigrationAutoRollback,
	})
	if err := migrator.Migrate(db); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "failed to migrate database")
	}

	a.DB = db
	return nil
}

func (a *App) startCache(ctx context.Context) error {
	if !a.Config.CacheEnabled {
		a.Logger.WithContext(ctx).Info("Redis disabled, using in-process cache")
		a.Store = cache.NewMemoryStore()
		return nil
	}

	store, err := cache.NewRedisStore(ctx, cache.RedisConfig{
		Host:     a.Config.RedisHost,
		Port:     a.Config.RedisPort,
		Password: a.Config.RedisPassword,
		DB:       a.Config.RedisDB,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.Store = store
	return nil
}

func (a *App) startKafka(ctx context.Context) error {
	if !a.Config.KafkaEnabled {
		a.Publisher = kafka.NoopPublisher{}
		return nil
	}

	a.Publisher = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.Config.KafkaBrokers,
		ImportTopic:  a.Config.KafkaImportTopic,
		SearchTopic:  a.Config.KafkaSearchTopic,
		BatchSize:    a.Config.KafkaBatchSize,
		BatchTimeout: time.Duration(a.Config.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.Config.KafkaRequiredAcks,
		Compression:  a.Config.KafkaCompression,
	}, a.Logger)
	a.Logger.WithContext(ctx).WithField("brokers", a.Config.KafkaBrokers).Info("Kafka producer configured")
	return nil
}

func (a *App) startGraph(ctx context.Context) error {
	if !a.Config.GraphEnabled {
		return nil
	}

	client, err := graph.NewClient(graph.Config{
		Host:     a.Config.GraphDBHost,
		Port:     a.Config.GraphDBPort,
		Username: a.Config.GraphDBUser,
		Password: a.Config.GraphDBPassword,
		Database: a.Config.GraphDBName,
	}, a.Logger)
	if err != nil {
		return err
	}
	if err := client.VerifyConnectivity(ctx); err != nil {
		_ = client.Close(ctx)
		return errors.Wrap(err, "failed to reach graph database")
	}
	a.Graph = client
	return nil
}

// wire builds the domain components over the started infrastructure
func (a *App) wire() error {
	policy := a.Config.Policy
	if policy == nil {
		policy = config.DefaultPolicy()
	}

	phones, err := normalizers.PhoneStrategyFor(policy.PhoneCountry)
	if err != nil {
		return err
	}

	a.Builder = matching.NewViewBuilder(policy.ActivePolicy(), phones)
	a.Sales = sale.NewRepository(a.DB, a.Logger, a.Builder)
	a.Runs = importrun.NewRepository(a.DB, a.Logger)

	engineCfg := search.DefaultConfig()
	engineCfg.Defaults = policy.Search

	opts := []search.Option{
		search.WithViewBuilder(a.Builder),
		search.WithGrouper(grouping.NewGrouper(policy.GroupingPolicy(), phones)),
		search.WithConfig(engineCfg),
	}
	if a.Config.SearchPushdown {
		opts = append(opts, search.WithScorer(sale.NewPushdownScorer(a.Sales, matching.SystemClock)))
	}
	a.Engine = search.NewEngine(a.Logger, a.Sales, opts...)

	a.SearchCache = cache.NewSearchCache(a.Store, a.Sales, a.Config.SearchCacheTTL, a.Logger)
	a.Summaries = cache.NewSummaryStore(a.Store, a.Config.SearchSummaryTTL)

	importOpts := []importer.Option{
		importer.WithInvalidator(a.SearchCache),
		importer.WithPublisher(a.Publisher),
		importer.WithLocker(cache.NewLocker(a.Store, "")),
		importer.WithReaderOptions(ingest.WithLocation(a.Config.Location())),
	}
	if a.Graph != nil {
		a.Projection = graph.NewCustomerProjection(a.Graph, a.Builder, a.Logger)
		importOpts = append(importOpts, importer.WithProjector(a.Projection))
	}
	a.Importer = importer.NewImporter(a.Sales, a.Runs, a.Logger, importOpts...)

	return nil
}
