package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"PricePulse/internal/domain/models"
)

// SnapshotColumns is the canonical v1 snapshot header. Column order is free,
// names are not.
var SnapshotColumns = []string{
	"entity_id", "name", "team", "ownership", "price", "transfers_in", "transfers_out", "status",
}

// ReadSnapshotCSV parses a canonical snapshot CSV. Any deviation from the
// schema is a *models.SchemaError.
func ReadSnapshotCSV(r io.Reader, source string) ([]models.Entity, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.SchemaError{Source: source, Reason: "empty file"}
	}
	if err != nil {
		return nil, &models.SchemaError{Source: source, Reason: err.Error()}
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := col[name]; dup {
			return nil, &models.SchemaError{Source: source, Field: name, Reason: "duplicate column"}
		}
		col[name] = i
	}
	for _, name := range SnapshotColumns {
		if _, ok := col[name]; !ok {
			return nil, &models.SchemaError{Source: source, Field: name, Reason: "missing column"}
		}
	}

	var out []models.Entity
	seen := make(map[int64]struct{})
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &models.SchemaError{Source: source, Reason: err.Error()}
		}
		e, err := parseEntity(rec, col, source, line)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[e.ID]; dup {
			return nil, &models.SchemaError{Source: source, Field: "entity_id", Reason: fmt.Sprintf("line %d: duplicate id %d", line, e.ID)}
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, nil
}

func parseEntity(rec []string, col map[string]int, source string, line int) (models.Entity, error) {
	bad := func(field, reason string) error {
		return &models.SchemaError{Source: source, Field: field, Reason: fmt.Sprintf("line %d: %s", line, reason)}
	}
	get := func(name string) string { return strings.TrimSpace(rec[col[name]]) }

	var e models.Entity
	var err error
	if e.ID, err = strconv.ParseInt(get("entity_id"), 10, 64); err != nil {
		return e, bad("entity_id", "not an integer")
	}
	e.Name = get("name")
	e.Team = get("team")
	if e.Ownership, err = parseAmount(get("ownership")); err != nil {
		return e, bad("ownership", "not a finite non-negative number")
	}
	if e.Price, err = parseAmount(get("price")); err != nil {
		return e, bad("price", "not a finite non-negative number")
	}
	if e.TransfersIn, err = strconv.ParseInt(get("transfers_in"), 10, 64); err != nil || e.TransfersIn < 0 {
		return e, bad("transfers_in", "not a non-negative integer")
	}
	if e.TransfersOut, err = strconv.ParseInt(get("transfers_out"), 10, 64); err != nil || e.TransfersOut < 0 {
		return e, bad("transfers_out", "not a non-negative integer")
	}
	status, ok := models.ParseStatus(get("status"))
	if !ok {
		return e, bad("status", fmt.Sprintf("unknown status %q", get("status")))
	}
	e.Status = status
	return e, nil
}

// parseAmount accepts finite non-negative decimals only; NaN and Inf are rejected.
func parseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return v, nil
}

// WriteSnapshotCSV writes entities with the canonical header.
func WriteSnapshotCSV(w io.Writer, entities []models.Entity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(SnapshotColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, e := range entities {
		rec := []string{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			e.Team,
			strconv.FormatFloat(e.Ownership, 'f', -1, 64),
			strconv.FormatFloat(e.Price, 'f', -1, 64),
			strconv.FormatInt(e.TransfersIn, 10),
			strconv.FormatInt(e.TransfersOut, 10),
			string(e.Status),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
