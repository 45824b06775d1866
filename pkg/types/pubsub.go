package types

// PubSubMessage is the payload of a Pub/Sub event via Cloud Event.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes,omitempty"`
	} `json:"message"`
}

// ActivityChangedEvent is published whenever a user's activity list or
// athlete profile changes and derived views need recomputing.
type ActivityChangedEvent struct {
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id,omitempty"`
	// AsOf is an optional YYYY-MM-DD override; the consumer uses today otherwise.
	AsOf string `json:"as_of,omitempty"`
}

// AnalyticsUpdatedEvent announces freshly persisted derived views.
type AnalyticsUpdatedEvent struct {
	UserID   string   `json:"user_id"`
	AsOf     string   `json:"as_of"`
	FTPWatts *int     `json:"ftp_watts,omitempty"`
	CTL      float64  `json:"ctl"`
	ATL      float64  `json:"atl"`
	TSB      float64  `json:"tsb"`
	Views    []string `json:"views"`
}
