package models

import "time"

// DigestItem is one highlighted prediction in a run digest.
type DigestItem struct {
	EntityID   int64      `json:"entity_id"`
	Name       string     `json:"name"`
	Team       string     `json:"team,omitempty"`
	Direction  Direction  `json:"direction"`
	AlertLevel AlertLevel `json:"alert_level"`
	Confidence float64    `json:"confidence"`
	Ownership  float64    `json:"ownership"`
	Price      float64    `json:"price"`
}

// Digest summarises one run for notification sinks.
type Digest struct {
	RunID     string                           `json:"run_id"`
	Date      time.Time                        `json:"date"`
	Counts    map[Direction]map[AlertLevel]int `json:"counts"`
	Risers    []DigestItem                     `json:"risers"`
	Fallers   []DigestItem                     `json:"fallers"`
	Accuracy  *AccuracyDay                     `json:"accuracy,omitempty"`
	Filtered  bool                             `json:"filtered"`
	Threshold string                           `json:"threshold_version"`
}
