package model

import "time"

// RunStatus represents the current state of a feature extraction run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats accounts for every building and region a run touched.
type RunStats struct {
	Regions          int `json:"regions"`
	BuildingsIn      int `json:"buildings_in"`
	SkippedGeometry  int `json:"skipped_geometry"`
	Uncovered        int `json:"uncovered"`
	DroppedHeight    int `json:"dropped_height"`
	DroppedInvalid   int `json:"dropped_invalid"`
	DroppedOutside   int `json:"dropped_outside"`
	Ambiguous        int `json:"ambiguous"`
	DroppedAmbiguous int `json:"dropped_ambiguous"`
	Assigned         int `json:"assigned"`
}

// Run is one execution of the pipeline for a city.
type Run struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
