package types

import "time"

type ExecutionStatus string

const (
	ExecutionStatusStarted ExecutionStatus = "started"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusSkipped ExecutionStatus = "skipped"
)

// ExecutionRecord tracks one function invocation.
type ExecutionRecord struct {
	ExecutionID string
	Service     string
	UserID      string
	TriggerType string
	Status      ExecutionStatus
	StartTime   time.Time
	EndTime     time.Time
	Error       string
	Outputs     string
}
