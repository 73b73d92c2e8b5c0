package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"PricePulse/internal/domain/models"
	domrepo "PricePulse/internal/domain/repository"
)

// File names of the JSON ledgers under the data directory.
const (
	PredictionsFile = "predictions.json"
	OutcomesFile    = "outcomes.json"
	ThresholdsFile  = "thresholds.json"
	AuditFile       = "calibration_audit.json"
	ProtectionFile  = "protection.json"
)

var (
	_ domrepo.PredictionLedger = (*FilePredictionLedger)(nil)
	_ domrepo.OutcomeLedger    = (*FileOutcomeLedger)(nil)
	_ domrepo.ThresholdStore   = (*FileThresholdStore)(nil)
	_ domrepo.ProtectionStore  = (*FileProtectionStore)(nil)
)

// FilePredictionLedger keeps the prediction history in one JSON file.
// Every Append rewrites the whole file atomically.
type FilePredictionLedger struct {
	mu   sync.Mutex
	path string
}

func NewFilePredictionLedger(dir string) *FilePredictionLedger {
	return &FilePredictionLedger{path: filepath.Join(dir, PredictionsFile)}
}

func (s *FilePredictionLedger) Load(_ context.Context) ([]models.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FilePredictionLedger) load() ([]models.Prediction, error) {
	var preds []models.Prediction
	if _, err := readJSON(s.path, &preds); err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	return preds, nil
}

func (s *FilePredictionLedger) Append(_ context.Context, preds []models.Prediction) (int, error) {
	if len(preds) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.load()
	if err != nil {
		return 0, err
	}
	merged := models.MergePredictions(existing, preds)
	if err := writeJSONAtomic(s.path, merged); err != nil {
		return 0, fmt.Errorf("append predictions: %w", err)
	}
	return len(preds), nil
}

// FileOutcomeLedger keeps realised outcomes in one JSON file.
type FileOutcomeLedger struct {
	mu   sync.Mutex
	path string
}

func NewFileOutcomeLedger(dir string) *FileOutcomeLedger {
	return &FileOutcomeLedger{path: filepath.Join(dir, OutcomesFile)}
}

func (s *FileOutcomeLedger) Load(_ context.Context) ([]models.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileOutcomeLedger) load() ([]models.Outcome, error) {
	var outs []models.Outcome
	if _, err := readJSON(s.path, &outs); err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	return outs, nil
}

func (s *FileOutcomeLedger) Append(_ context.Context, outcomes []models.Outcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.load()
	if err != nil {
		return 0, err
	}
	merged := models.MergeOutcomes(existing, outcomes)
	if err := writeJSONAtomic(s.path, merged); err != nil {
		return 0, fmt.Errorf("append outcomes: %w", err)
	}
	return len(outcomes), nil
}

// FileThresholdStore keeps the current threshold set and the audit trail.
type FileThresholdStore struct {
	mu        sync.Mutex
	path      string
	auditPath string
}

func NewFileThresholdStore(dir string) *FileThresholdStore {
	return &FileThresholdStore{
		path:      filepath.Join(dir, ThresholdsFile),
		auditPath: filepath.Join(dir, AuditFile),
	}
}

func (s *FileThresholdStore) Current(_ context.Context) (models.ThresholdSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var set models.ThresholdSet
	found, err := readJSON(s.path, &set)
	if err != nil {
		return models.ThresholdSet{}, fmt.Errorf("load thresholds: %w", err)
	}
	if !found || len(set.Cutoffs) == 0 {
		return models.DefaultThresholdSet(), nil
	}
	return set, nil
}

func (s *FileThresholdStore) Save(_ context.Context, set models.ThresholdSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeJSONAtomic(s.path, set); err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}

func (s *FileThresholdStore) AppendAudit(_ context.Context, audit models.CalibrationAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var audits []models.CalibrationAudit
	if _, err := readJSON(s.auditPath, &audits); err != nil {
		return fmt.Errorf("load audit: %w", err)
	}
	audits = append(audits, audit)
	if err := writeJSONAtomic(s.auditPath, audits); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func (s *FileThresholdStore) Audits(_ context.Context) ([]models.CalibrationAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var audits []models.CalibrationAudit
	if _, err := readJSON(s.auditPath, &audits); err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	return audits, nil
}

// FileProtectionStore keeps the protection ledger as a JSON list.
type FileProtectionStore struct {
	mu   sync.Mutex
	path string
}

func NewFileProtectionStore(dir string) *FileProtectionStore {
	return &FileProtectionStore{path: filepath.Join(dir, ProtectionFile)}
}

func (s *FileProtectionStore) Load(_ context.Context) (map[int64]models.ProtectionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileProtectionStore) load() (map[int64]models.ProtectionEntry, error) {
	var list []models.ProtectionEntry
	if _, err := readJSON(s.path, &list); err != nil {
		return nil, fmt.Errorf("load protection: %w", err)
	}
	out := make(map[int64]models.ProtectionEntry, len(list))
	for _, e := range list {
		e.LockUntil = models.DayOf(e.LockUntil)
		if cur, ok := out[e.EntityID]; ok && !e.LockUntil.After(cur.LockUntil) {
			continue
		}
		out[e.EntityID] = e
	}
	return out, nil
}

func (s *FileProtectionStore) Upsert(_ context.Context, entries []models.ProtectionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.load()
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.LockUntil = models.DayOf(e.LockUntil)
		if old, ok := cur[e.EntityID]; ok && !e.LockUntil.After(old.LockUntil) {
			continue
		}
		cur[e.EntityID] = e
	}
	list := make([]models.ProtectionEntry, 0, len(cur))
	for _, e := range cur {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EntityID < list[j].EntityID })
	if err := writeJSONAtomic(s.path, list); err != nil {
		return fmt.Errorf("upsert protection: %w", err)
	}
	return nil
}
