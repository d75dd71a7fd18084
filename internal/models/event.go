package models

import "time"

// Event is a generic audit/lifecycle record, independent of any one
// job's trace timeline: job_submitted, job_failed, plugin_registered,
// and similar occurrences that the API's /events endpoint exposes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	JobID     *int64    `json:"job_id,omitempty"`
	Message   string    `json:"message"`
	Data      JSONMap   `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type EventCreate struct {
	Type    string  `json:"type" binding:"required"`
	JobID   *int64  `json:"job_id,omitempty"`
	Message string  `json:"message"`
	Data    JSONMap `json:"data,omitempty"`
}
