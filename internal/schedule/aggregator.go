// Package schedule turns a doctor's flat slot list into the date-grouped
// structure the slot picker renders.
package schedule

import (
	"context"

	"github.com/clinicbook/clinicbook-go/internal/api"
	"github.com/clinicbook/clinicbook-go/pkg/logging"
)

// SlotFetcher is the gateway operation the aggregator depends on.
type SlotFetcher interface {
	Schedules(ctx context.Context, doctorID int, date string) ([]api.Slot, error)
}

// Grouped is an ordered mapping from date to that date's slots. Dates appear
// in the order the server first produced them; slots keep server order
// within a date. The backend already sorts ascending by date and time, so
// grouping preserves that ordering without re-sorting.
type Grouped struct {
	dates   []string
	buckets map[string][]api.Slot
	byID    map[int]api.Slot
}

// Group partitions slots by date. Every input slot lands in exactly one
// bucket.
func Group(slots []api.Slot) *Grouped {
	g := &Grouped{
		buckets: make(map[string][]api.Slot),
		byID:    make(map[int]api.Slot, len(slots)),
	}
	for _, s := range slots {
		if _, ok := g.buckets[s.Date]; !ok {
			g.dates = append(g.dates, s.Date)
		}
		g.buckets[s.Date] = append(g.buckets[s.Date], s)
		g.byID[s.ID] = s
	}
	return g
}

// Dates returns the date keys in display order.
func (g *Grouped) Dates() []string { return g.dates }

// SlotsOn returns the slots for one date, in server order.
func (g *Grouped) SlotsOn(date string) []api.Slot { return g.buckets[date] }

// Slot looks a slot up by id.
func (g *Grouped) Slot(id int) (api.Slot, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// Len is the total number of slots across all dates.
func (g *Grouped) Len() int { return len(g.byID) }

// Empty reports whether the doctor has no upcoming slots. A valid state,
// not an error.
func (g *Grouped) Empty() bool { return len(g.byID) == 0 }

// Aggregator loads and holds the current grouped schedule for one picker
// view.
type Aggregator struct {
	fetcher SlotFetcher
	logger  *logging.Logger
	current *Grouped
}

func NewAggregator(fetcher SlotFetcher, logger *logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
		current: Group(nil),
	}
}

// Load fetches the doctor's slots (optionally scoped server-side to date)
// and replaces the held schedule wholesale. On failure the previously held
// schedule is left untouched so one failed refresh does not blank a valid
// view.
func (a *Aggregator) Load(ctx context.Context, doctorID int, date string) (*Grouped, error) {
	slots, err := a.fetcher.Schedules(ctx, doctorID, date)
	if err != nil {
		a.logger.Warn("schedule fetch failed, keeping previous view", "doctor_id", doctorID, "error", err)
		return nil, err
	}
	a.current = Group(slots)
	a.logger.Debug("schedule loaded", "doctor_id", doctorID, "dates", len(a.current.dates), "slots", a.current.Len())
	return a.current, nil
}

// Current returns the last successfully loaded schedule.
func (a *Aggregator) Current() *Grouped { return a.current }
