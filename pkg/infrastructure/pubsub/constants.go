package pubsub

// CloudEvent sources and types emitted by this system.
const (
	SourceFitParser          = "/vitalsync/functions/fit-parser-handler"
	SourceAnalyticsRecompute = "/vitalsync/functions/analytics-recompute"

	TypeActivityChanged  = "com.vitalsync.activity.changed"
	TypeAnalyticsUpdated = "com.vitalsync.analytics.updated"
)
