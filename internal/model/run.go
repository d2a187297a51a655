// Package model defines the records the run store persists.
package model

import "time"

// RunStatus is the lifecycle state of an analysis run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// StatParams holds the distance sequence and envelope settings for one
// summary statistic.
type StatParams struct {
	RStart     float64 `json:"r_start"`
	REnd       float64 `json:"r_end"`
	RStep      float64 `json:"r_step"`
	NSim       int     `json:"nsim"`
	Rank       int     `json:"rank"`
	Correction string  `json:"correction,omitempty"`
}

// AnalysisParams records everything needed to reproduce a run.
type AnalysisParams struct {
	PointsPath   string     `json:"points_path"`
	BoundaryPath string     `json:"boundary_path"`
	Counties     []string   `json:"counties,omitempty"`
	CRS          string     `json:"crs"`
	Bandwidth    float64    `json:"bandwidth"`
	GridNX       int        `json:"grid_nx"`
	GridNY       int        `json:"grid_ny"`
	G            StatParams `json:"g"`
	L            StatParams `json:"l"`
	Seed         int64      `json:"seed"`
}

// RunSummary holds the headline numbers of a completed run.
type RunSummary struct {
	N          int     `json:"n"`
	Rejected   int     `json:"rejected"`
	WindowArea float64 `json:"window_area"`
	Intensity  float64 `json:"intensity"`
	MeanNN     float64 `json:"mean_nn"`
	MedianNN   float64 `json:"median_nn"`
}

// Run is one recorded analysis run.
type Run struct {
	ID        string          `json:"id"`
	Dataset   string          `json:"dataset"`
	Status    RunStatus       `json:"status"`
	Params    *AnalysisParams `json:"params,omitempty"`
	Summary   *RunSummary     `json:"summary,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
