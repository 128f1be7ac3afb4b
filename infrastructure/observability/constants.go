package observability

// Metric name prefixes
const (
	MetricPrefix = "chisato"
)

// Metric names
const (
	// Voice state metrics
	VoiceEventsTotal = MetricPrefix + ".voice.events_total"

	// Room lifecycle metrics
	RoomsMintedTotal      = MetricPrefix + ".rooms.minted_total"
	RoomsReclaimedTotal   = MetricPrefix + ".rooms.reclaimed_total"
	LeaderTransfersTotal  = MetricPrefix + ".rooms.leader_transfers_total"
	CooldownsExpiredTotal = MetricPrefix + ".rooms.cooldowns_expired_total"
	SweepDuration         = MetricPrefix + ".rooms.sweep_duration"

	// Panel metrics
	PanelActionsTotal = MetricPrefix + ".panel.actions_total"

	// Platform metrics
	GatewayErrorsTotal = MetricPrefix + ".gateway.errors_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Database metrics
	DatabaseQueriesTotal  = MetricPrefix + ".database.queries_total"
	DatabaseQueryDuration = MetricPrefix + ".database.query_duration"
)

// Label keys
const (
	// Common labels
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelReason    = "reason"

	// Panel labels
	LabelAction  = "action"
	LabelOutcome = "outcome"

	// Platform labels
	LabelOperation = "operation"
	LabelErrorKind = "error_kind"

	// Database labels
	LabelRepository = "repository"
	LabelMethod     = "method"
)

// Room types
const (
	RoomTypeRegular = "regular"
	RoomTypeLove    = "love"
)

// Panel outcomes
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)
