package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chisato/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics. A nil provider records nothing.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	voiceEventsCounter           metric.Int64Counter
	roomsMintedCounter           metric.Int64Counter
	roomsReclaimedCounter        metric.Int64Counter
	leaderTransfersCounter       metric.Int64Counter
	cooldownsExpiredCounter      metric.Int64Counter
	sweepDurationHist            metric.Float64Histogram
	panelActionsCounter          metric.Int64Counter
	gatewayErrorsCounter         metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	databaseQueriesCounter       metric.Int64Counter
	databaseQueryDurationHist    metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("chisato")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.voiceEventsCounter, VoiceEventsTotal, "Voice state changes handled"},
		{&mp.roomsMintedCounter, RoomsMintedTotal, "Rooms created from a hub"},
		{&mp.roomsReclaimedCounter, RoomsReclaimedTotal, "Rooms removed, by reason"},
		{&mp.leaderTransfersCounter, LeaderTransfersTotal, "Room leadership changes"},
		{&mp.cooldownsExpiredCounter, CooldownsExpiredTotal, "Rename/limit cooldowns cleared by the expirer"},
		{&mp.panelActionsCounter, PanelActionsTotal, "Control panel actions, by outcome"},
		{&mp.gatewayErrorsCounter, GatewayErrorsTotal, "Failed platform calls, by error kind"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Room events published to NATS"},
		{&mp.databaseQueriesCounter, DatabaseQueriesTotal, "Total number of database queries"},
	}
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	mp.sweepDurationHist, err = mp.meter.Float64Histogram(
		SweepDuration,
		metric.WithDescription("Duration of one orphan sweep pass in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return fmt.Errorf("failed to create sweep duration histogram: %w", err)
	}

	mp.databaseQueryDurationHist, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordVoiceEvent records a handled voice state change
func (mp *MetricsProvider) RecordVoiceEvent(outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.voiceEventsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)))
}

// RecordRoomMinted records a new room
func (mp *MetricsProvider) RecordRoomMinted(roomType string) {
	if !mp.isEnabled() {
		return
	}
	mp.roomsMintedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelType, roomType)))
}

// RecordRoomReclaimed records a removed room
func (mp *MetricsProvider) RecordRoomReclaimed(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.roomsReclaimedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)))
}

// RecordLeaderTransfer records a leadership change
func (mp *MetricsProvider) RecordLeaderTransfer(voluntary bool) {
	if !mp.isEnabled() {
		return
	}
	reason := "migration"
	if voluntary {
		reason = "transfer"
	}
	mp.leaderTransfersCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)))
}

// RecordCooldownsExpired records how many cooldowns one expirer pass cleared
func (mp *MetricsProvider) RecordCooldownsExpired(count int) {
	if !mp.isEnabled() || count == 0 {
		return
	}
	mp.cooldownsExpiredCounter.Add(context.Background(), int64(count))
}

// RecordSweep records the duration of one orphan sweep pass
func (mp *MetricsProvider) RecordSweep(duration time.Duration) {
	if !mp.isEnabled() {
		return
	}
	mp.sweepDurationHist.Record(context.Background(), duration.Seconds())
}

// RecordPanelAction records a control panel action and its outcome
func (mp *MetricsProvider) RecordPanelAction(action, outcome string) {
	if !mp.isEnabled() {
		return
	}
	mp.panelActionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelAction, action),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordGatewayError records a failed platform call
func (mp *MetricsProvider) RecordGatewayError(operation, kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.gatewayErrorsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelErrorKind, kind),
		),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)))
}

// RecordDatabaseQuery records a database query with duration
func (mp *MetricsProvider) RecordDatabaseQuery(repository, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelRepository, repository),
		attribute.String(LabelMethod, method),
	)

	mp.databaseQueriesCounter.Add(context.Background(), 1, attrs)
	mp.databaseQueryDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureDatabaseQuery returns a function to measure database query duration
// Usage:
//
//	defer mp.MeasureDatabaseQuery("live_room", "LockLiveRoom")()
func (mp *MetricsProvider) MeasureDatabaseQuery(repository, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordDatabaseQuery(repository, method, time.Since(start))
	}
}

// isEnabled checks if metrics are enabled and instruments exist
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.meter != nil
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
