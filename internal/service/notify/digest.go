package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"PricePulse/internal/domain/models"
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/pkg/util"
)

// BuildDigest summarises a scoring run. Only warming and imminent rows are
// highlighted; with a non-empty watchlist the highlights are restricted to it.
// Counts always cover every prediction.
func BuildDigest(runID string, preds []models.Prediction, snap models.Snapshot, wl domsvc.Watchlist, topN int, acc *models.AccuracyDay, thresholdVersion string) models.Digest {
	d := models.Digest{
		RunID:     runID,
		Date:      snap.Date(),
		Counts:    make(map[models.Direction]map[models.AlertLevel]int, 3),
		Accuracy:  acc,
		Threshold: thresholdVersion,
	}
	filter := wl != nil && !wl.Empty()
	d.Filtered = filter
	index := snap.Index()

	for _, p := range preds {
		if d.Counts[p.Direction] == nil {
			d.Counts[p.Direction] = make(map[models.AlertLevel]int, 3)
		}
		d.Counts[p.Direction][p.AlertLevel]++

		if p.AlertLevel == models.AlertNone || !p.Direction.Actionable() {
			continue
		}
		if filter && !wl.Contains(p.Name) {
			continue
		}
		e := index[p.EntityID]
		item := models.DigestItem{
			EntityID:   p.EntityID,
			Name:       p.Name,
			Team:       e.Team,
			Direction:  p.Direction,
			AlertLevel: p.AlertLevel,
			Confidence: p.Confidence,
			Ownership:  p.Ownership,
			Price:      e.Price,
		}
		if p.Direction == models.DirectionRise {
			d.Risers = append(d.Risers, item)
		} else {
			d.Fallers = append(d.Fallers, item)
		}
	}
	d.Risers = top(d.Risers, topN)
	d.Fallers = top(d.Fallers, topN)
	return d
}

func top(items []models.DigestItem, n int) []models.DigestItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		return items[i].EntityID < items[j].EntityID
	})
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

// FormatDigest renders the plain-text message.
func FormatDigest(d models.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Price change outlook %s\n", util.FormatDate(d.Date))
	for _, row := range []struct {
		label string
		dir   models.Direction
	}{{"Rises", models.DirectionRise}, {"Falls", models.DirectionFall}} {
		c := d.Counts[row.dir]
		fmt.Fprintf(&b, "%s: %d imminent, %d warming\n", row.label, c[models.AlertImminent], c[models.AlertWarming])
	}
	if d.Filtered {
		b.WriteString("(watchlist only)\n")
	}
	section(&b, "Likely risers", d.Risers)
	section(&b, "Likely fallers", d.Fallers)
	if d.Accuracy != nil && d.Accuracy.Total > 0 {
		fmt.Fprintf(&b, "\nAccuracy %s: %d/%d (%.0f%%)\n",
			util.FormatDate(d.Accuracy.Date), d.Accuracy.Correct, d.Accuracy.Total, d.Accuracy.Accuracy*100)
	}
	fmt.Fprintf(&b, "\nthresholds %s", d.Threshold)
	return b.String()
}

func section(b *strings.Builder, title string, items []models.DigestItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, it := range items {
		marker := "~"
		if it.AlertLevel == models.AlertImminent {
			marker = "!"
		}
		fmt.Fprintf(b, "%s %s", marker, it.Name)
		if it.Team != "" {
			fmt.Fprintf(b, " (%s)", it.Team)
		}
		fmt.Fprintf(b, " %.1f  conf %.2f  own %.1f%%\n", it.Price, it.Confidence, it.Ownership)
	}
}

// Split breaks text on line boundaries into chunks of at most max bytes.
func Split(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > max {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, line[:max])
			line = line[max:]
		}
		if cur.Len()+len(line) > max {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// dateKey is the Kafka message key of a digest.
func dateKey(t time.Time) []byte { return []byte(util.FormatDate(t)) }
