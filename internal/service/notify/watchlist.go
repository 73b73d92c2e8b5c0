package notify

import (
	domsvc "PricePulse/internal/domain/service"
	"PricePulse/pkg/util"
)

var _ domsvc.Watchlist = (*Watchlist)(nil)

// Watchlist matches entity names case-insensitively. The zero value is empty
// and filters nothing.
type Watchlist struct {
	names map[string]struct{}
}

func NewWatchlist(names ...[]string) *Watchlist {
	w := &Watchlist{names: make(map[string]struct{})}
	for _, list := range names {
		for _, n := range list {
			if key := util.NormalizeName(n); key != "" {
				w.names[key] = struct{}{}
			}
		}
	}
	return w
}

func (w *Watchlist) Contains(name string) bool {
	if w == nil {
		return false
	}
	_, ok := w.names[util.NormalizeName(name)]
	return ok
}

func (w *Watchlist) Empty() bool { return w == nil || len(w.names) == 0 }

// Len is the number of distinct names.
func (w *Watchlist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.names)
}
