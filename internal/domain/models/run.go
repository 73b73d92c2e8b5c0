package models

import "time"

// StageStatus is the terminal state of a pipeline stage.
type StageStatus string

const (
	StageOK           StageStatus = "ok"
	StageSkipped      StageStatus = "skipped"
	StageInconclusive StageStatus = "inconclusive"
	StageFailed       StageStatus = "failed"
)

// Pipeline stage names.
const (
	StageProtection  = "protection"
	StageScoring     = "scoring"
	StageOutcomes    = "outcomes"
	StageCalibration = "calibration"
	StageAccuracy    = "accuracy"
	StageNotify      = "notify"
)

// StageResult describes what a stage did.
type StageResult struct {
	Stage    string        `json:"stage"`
	Status   StageStatus   `json:"status"`
	Rows     int           `json:"rows"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunReport collects stage results for one pipeline run.
type RunReport struct {
	RunID      string        `json:"run_id"`
	SnapshotAt time.Time     `json:"snapshot_at"`
	StartedAt  time.Time     `json:"started_at"`
	Stages     []StageResult `json:"stages"`
}

// Add appends a stage result.
func (r *RunReport) Add(res StageResult) { r.Stages = append(r.Stages, res) }

// Failed reports whether any stage failed.
func (r RunReport) Failed() bool {
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			return true
		}
	}
	return false
}

// Stage returns the result of the named stage.
func (r RunReport) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}
