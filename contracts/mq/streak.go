package mq

import "time"

const (
	RoutingCompletionRecorded  = "streak.completion.recorded"
	RoutingCompletionsDeleted  = "streak.completions.deleted"
	RoutingHabitDeleted        = "habit.deleted"
	RoutingRegistryHabitDelete = "registry.habit.deleted"
)

type CompletionRecordedPayload struct {
	CompletionID string    `json:"completion_id"`
	HabitID      string    `json:"hid"`
	OwnerID      string    `json:"uid"`
	CompletedOn  time.Time `json:"completed_on"`
	TraceID      string    `json:"trace_id,omitempty"`
}

type CompletionsDeletedPayload struct {
	HabitID   string    `json:"hid"`
	OwnerID   string    `json:"uid"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Deleted   int64     `json:"deleted"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// HabitDeletedPayload is both published by this service and consumed from
// an external registry (registry.habit.deleted).
type HabitDeletedPayload struct {
	HabitID string `json:"hid"`
	OwnerID string `json:"uid"`
	// completions purged alongside the habit
	Purged  int64  `json:"purged"`
	TraceID string `json:"trace_id,omitempty"`
}
