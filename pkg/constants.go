package shared

const (
	ProjectID = "vitalsync-project" // Can be overridden by env var in main if needed

	TopicActivityChanged  = "topic-activity-changed"
	TopicAnalyticsUpdated = "topic-analytics-updated"

	CollectionUsers         = "users"
	CollectionActivities    = "activities"
	CollectionSettings      = "settings"
	CollectionTrends        = "trends"
	CollectionActivityStats = "activityStats"
	CollectionExecutions    = "executions"
	CollectionAuditLog      = "auditLog"

	// Singleton documents.
	DocSettingsProfile   = "profile"
	DocTrendPMC          = "pmc"
	DocTrendPowerProfile = "power_profile"

	// ExportsPrefix roots per-user artifacts in the artifact bucket.
	ExportsPrefix = "exports"
)
