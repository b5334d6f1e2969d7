package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/clinicbook/clinicbook-go/internal/api"
)

type fakeFetcher struct {
	slots []api.Slot
	err   error
	calls int
}

func (f *fakeFetcher) Schedules(_ context.Context, _ int, _ string) ([]api.Slot, error) {
	f.calls++
	return f.slots, f.err
}

func TestGroupIsAPartition(t *testing.T) {
	slots := []api.Slot{
		{ID: 1, Date: "2025-10-20", StartTime: "09:00:00", IsAvailable: true},
		{ID: 2, Date: "2025-10-21", StartTime: "10:00:00", IsAvailable: true},
		{ID: 3, Date: "2025-10-20", StartTime: "11:00:00", IsAvailable: false},
		{ID: 4, Date: "2025-10-22", StartTime: "09:30:00", IsAvailable: true},
	}

	g := Group(slots)

	total := 0
	seen := map[int]bool{}
	for _, date := range g.Dates() {
		for _, s := range g.SlotsOn(date) {
			if s.Date != date {
				t.Fatalf("slot %d in bucket %s has date %s", s.ID, date, s.Date)
			}
			if seen[s.ID] {
				t.Fatalf("slot %d appears in more than one bucket", s.ID)
			}
			seen[s.ID] = true
			total++
		}
	}
	if total != len(slots) {
		t.Fatalf("bucketed %d slots, want %d", total, len(slots))
	}
}

func TestGroupPreservesServerOrder(t *testing.T) {
	// Server order: date-ascending with times ascending within a date.
	slots := []api.Slot{
		{ID: 101, Date: "2025-10-20", StartTime: "09:00:00", IsAvailable: true},
		{ID: 103, Date: "2025-10-20", StartTime: "11:00:00", IsAvailable: true},
		{ID: 102, Date: "2025-10-21", StartTime: "10:00:00", IsAvailable: true},
	}

	g := Group(slots)

	dates := g.Dates()
	if len(dates) != 2 || dates[0] != "2025-10-20" || dates[1] != "2025-10-21" {
		t.Fatalf("unexpected dates: %v", dates)
	}

	day1 := g.SlotsOn("2025-10-20")
	if len(day1) != 2 || day1[0].ID != 101 || day1[1].ID != 103 {
		t.Fatalf("unexpected 2025-10-20 bucket: %+v", day1)
	}
	day2 := g.SlotsOn("2025-10-21")
	if len(day2) != 1 || day2[0].ID != 102 {
		t.Fatalf("unexpected 2025-10-21 bucket: %+v", day2)
	}
}

func TestGroupEmpty(t *testing.T) {
	g := Group(nil)
	if !g.Empty() {
		t.Fatal("expected empty grouping")
	}
	if len(g.Dates()) != 0 {
		t.Fatalf("unexpected dates: %v", g.Dates())
	}
}

func TestLoadReplacesWholesale(t *testing.T) {
	fetcher := &fakeFetcher{slots: []api.Slot{{ID: 1, Date: "2025-10-20", IsAvailable: true}}}
	agg := NewAggregator(fetcher, nil)

	first, err := agg.Load(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if first.Len() != 1 {
		t.Fatalf("unexpected first load: %d slots", first.Len())
	}

	fetcher.slots = []api.Slot{
		{ID: 10, Date: "2025-11-01", IsAvailable: true},
		{ID: 11, Date: "2025-11-02", IsAvailable: true},
	}
	second, err := agg.Load(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if second.Len() != 2 {
		t.Fatalf("unexpected second load: %d slots", second.Len())
	}
	if _, ok := second.Slot(1); ok {
		t.Fatal("old slot survived a reload; replacement must be wholesale")
	}
	if agg.Current() != second {
		t.Fatal("Current should be the latest successful load")
	}
}

func TestLoadFailureKeepsPreviousSchedule(t *testing.T) {
	fetcher := &fakeFetcher{slots: []api.Slot{{ID: 1, Date: "2025-10-20", IsAvailable: true}}}
	agg := NewAggregator(fetcher, nil)

	if _, err := agg.Load(context.Background(), 3, ""); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	fetcher.err = errors.New("backend down")
	if _, err := agg.Load(context.Background(), 3, ""); err == nil {
		t.Fatal("expected error")
	}
	if agg.Current().Len() != 1 {
		t.Fatal("previous schedule was lost on a transient failure")
	}
	if _, ok := agg.Current().Slot(1); !ok {
		t.Fatal("previous slot missing after failed refresh")
	}
}

func TestLoadEmptyResultIsValid(t *testing.T) {
	agg := NewAggregator(&fakeFetcher{}, nil)
	g, err := agg.Load(context.Background(), 3, "")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !g.Empty() {
		t.Fatal("expected empty schedule")
	}
}
