// Gray Logic Line Writer
//
// The line writer accepts time-series points over HTTP and MQTT, renders them
// as InfluxDB line protocol and delivers each batch to every enabled sink
// (a VictoriaMetrics-style /write endpoint, InfluxDB v2, an MQTT topic).
// Payloads a sink cannot take are spooled to SQLite and replayed later.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/api"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/tsdb"
	"github.com/nerrad567/gray-logic-linewriter/internal/ingest"
	"github.com/nerrad567/gray-logic-linewriter/internal/lineprotocol"
	"github.com/nerrad567/gray-logic-linewriter/internal/pipeline"
	"github.com/nerrad567/gray-logic-linewriter/internal/sampler"
	"github.com/nerrad567/gray-logic-linewriter/internal/spool"
	"github.com/nerrad567/gray-logic-linewriter/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownFlushTimeout bounds the final flush after the shutdown signal.
const shutdownFlushTimeout = 15 * time.Second

// errNoSinks is returned when the configuration enables no sink.
var errNoSinks = errors.New("no sink enabled: enable at least one of tsdb, influxdb, mqtt")

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Line Writer",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	checks := map[string]api.HealthChecker{}

	// Open the spool (optional)
	var store *spool.SQLiteStore
	if cfg.Spool.Enabled {
		db, openErr := database.Open(ctx, database.Config{
			Path:        cfg.Spool.Path,
			WALMode:     cfg.Spool.WALMode,
			BusyTimeout: cfg.Spool.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening spool database: %w", openErr)
		}
		defer func() {
			log.Info("closing spool database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing spool database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		store = spool.NewSQLiteStore(db.DB, cfg.Spool.MaxAttempts)
		checks["spool"] = db
		log.Info("spool ready", "path", cfg.Spool.Path, "max_attempts", cfg.Spool.MaxAttempts)
	} else {
		log.Info("spool disabled, undeliverable batches will be dropped")
	}

	// Connect sinks
	var sinks []pipeline.Sink

	tsdbClient, err := tsdb.Connect(ctx, cfg.TSDB)
	switch {
	case errors.Is(err, tsdb.ErrDisabled):
		log.Info("TSDB sink disabled")
	case err != nil:
		return fmt.Errorf("connecting to TSDB: %w", err)
	default:
		defer closeWith(log, "TSDB", tsdbClient.Close)
		sinks = append(sinks, tsdbClient)
		checks[tsdbClient.Name()] = tsdbClient
		log.Info("TSDB connected", "url", cfg.TSDB.URL)
	}

	influxClient, err := influxdb.Connect(ctx, cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB sink disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer closeWith(log, "InfluxDB", influxClient.Close)
		sinks = append(sinks, influxClient)
		checks[influxClient.Name()] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
			"precision", cfg.InfluxDB.Precision,
		)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Site.ID)
	switch {
	case errors.Is(err, mqtt.ErrDisabled):
		log.Info("MQTT sink disabled")
	case err != nil:
		return fmt.Errorf("connecting to MQTT: %w", err)
	default:
		defer closeWith(log, "MQTT", mqttClient.Close)
		mqttClient.SetLogger(log)
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		sinks = append(sinks, mqttClient)
		checks[mqttClient.Name()] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	if len(sinks) == 0 {
		return errNoSinks
	}

	// The stream tails delivered batches; it is not a destination of its own.
	var stream *api.Stream
	if cfg.API.Enabled && cfg.API.Stream.Enabled {
		stream = api.NewStream(cfg.API.Stream, log.Component("stream"))
		sinks = append(sinks, stream)
	}

	// Build the pipeline
	var spoolStore spool.Store
	if store != nil {
		spoolStore = store
	}
	pipe := pipeline.New(pipeline.Config{
		BatchSize:      cfg.Pipeline.BatchSize,
		FlushInterval:  cfg.FlushInterval(),
		ReplayInterval: cfg.ReplayInterval(),
	}, sinks, spoolStore, log.Component("pipeline"))
	pipe.SetOnError(func(err error) {
		log.Error("pipeline delivery error", "error", err)
	})
	pipe.Start(ctx)
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
		defer cancel()
		log.Info("flushing pipeline", "buffered", pipe.Stats().Buffered)
		if closeErr := pipe.Close(flushCtx); closeErr != nil {
			log.Error("final flush lost points", "error", closeErr)
		}
	}()
	log.Info("pipeline started", "sinks", pipe.SinkNames(), "batch_size", cfg.Pipeline.BatchSize)

	// Self-monitoring
	precision, err := lineprotocol.ParsePrecision(cfg.Pipeline.Precision)
	if err != nil {
		return fmt.Errorf("parsing pipeline precision: %w", err)
	}
	smp := sampler.New(sampler.Config{
		Site:      cfg.Site.ID,
		Precision: precision,
		Interval:  cfg.SampleInterval(),
	}, pipe, pipe, log.Component("sampler"))
	go smp.Run(ctx)

	decoder := &ingest.Decoder{DefaultTags: map[string]string{"site": cfg.Site.ID}, SplitFields: true}

	// MQTT ingest
	if mqttClient != nil {
		topic := mqttClient.Topics().Write()
		if subErr := mqttClient.Subscribe(ctx, topic, byte(cfg.MQTT.QoS), decoder.MessageHandler(ctx, pipe)); subErr != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, subErr)
		}
		log.Info("MQTT ingest subscribed", "topic", topic)
	}

	// HTTP gateway
	if cfg.API.Enabled {
		var counter api.SpoolCounter
		if store != nil {
			counter = store
		}
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log.Component("api"),
			Writer:  pipe,
			Spool:   counter,
			Decoder: decoder,
			Checks:  checks,
			Stream:  stream,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer closeWith(log, "API server", server.Close)
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, pipeline flush,
	// sinks, spool database.
	return nil
}

// getConfigPath returns the configuration file path.
// Checks LINEWRITER_CONFIG environment variable first, then uses default.
func getConfigPath() string {
	if path := os.Getenv("LINEWRITER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies every registered component is reachable.
//
// Parameters:
//   - ctx: Context for timeout
//   - checks: Components keyed by name
//
// Returns:
//   - error: First failing component, or nil if all are healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for name, c := range checks {
		if err := c.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func closeWith(log *logging.Logger, name string, closeFn func() error) {
	log.Info("closing " + name)
	if err := closeFn(); err != nil {
		log.Error("error closing "+name, "error", err)
	}
}
