package timeline

import (
	"errors"
	"testing"

	"github.com/tatianab/branching-scenes/internal/models"
	"github.com/tatianab/branching-scenes/internal/world"
)

func initial() *world.State {
	return world.New([]models.Variable{
		{Name: "alarm", Type: models.TypeBool, Initial: models.BoolValue(false)},
		{Name: "allies", Type: models.TypeNumber, Initial: models.NumberValue(0)},
	}, "r1")
}

func events() []models.Event {
	return []models.Event{
		{ID: "e1", Room: "r1", Canonical: true, Delta: models.Delta{"alarm": models.Set(models.BoolValue(false))}},
		{ID: "e2", Room: "r2", Canonical: true, Delta: models.Delta{"alarm": models.Set(models.BoolValue(true))}},
		{ID: "g1", Room: "r2", Delta: models.Delta{"allies": models.Add(1)}},
		{ID: "g2", Room: "r2", Delta: models.Delta{"allies": models.Add(2)}},
	}
}

// build appends events and returns the live state, computed step by step.
func build(t *testing.T, tl *Timeline, evs []models.Event) *world.State {
	t.Helper()
	st := initial()
	for _, e := range evs {
		next, err := st.Apply(e)
		if err != nil {
			t.Fatalf("Apply(%s): %v", e.ID, err)
		}
		tl.Append(e, st.Changes(next))
		st = next
	}
	return st
}

func TestFoldMatchesLiveState(t *testing.T) {
	tl := New()
	live := build(t, tl, events())

	folded, err := tl.FoldState(initial())
	if err != nil {
		t.Fatalf("FoldState: %v", err)
	}
	if !folded.Equal(live) {
		t.Fatalf("fold = %+v, live = %+v", folded.Snapshot(), live.Snapshot())
	}
	if v, _ := folded.Value("allies"); v != models.NumberValue(3) {
		t.Errorf("allies = %v, want 3", v)
	}
}

func TestTruncateToIgnoresDiscardedSuffix(t *testing.T) {
	for k := 0; k <= len(events()); k++ {
		tl := New()
		build(t, tl, events())
		if err := tl.TruncateTo(k); err != nil {
			t.Fatalf("TruncateTo(%d): %v", k, err)
		}

		want := build(t, New(), events()[:k])
		got, err := tl.FoldState(initial())
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(want) {
			t.Errorf("k=%d: fold = %+v, want %+v", k, got.Snapshot(), want.Snapshot())
		}
		if tl.CurrentIndex() != k {
			t.Errorf("k=%d: CurrentIndex = %d", k, tl.CurrentIndex())
		}
	}
}

func TestTruncateToOutOfRange(t *testing.T) {
	tl := New()
	build(t, tl, events()[:2])
	for _, k := range []int{-1, 3} {
		if err := tl.TruncateTo(k); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("TruncateTo(%d) error = %v", k, err)
		}
	}
}

func TestDivergenceAndWindow(t *testing.T) {
	tl := New()
	build(t, tl, events()[:2])
	if tl.Diverged() {
		t.Fatal("canonical timeline reported as diverged")
	}
	build(t, tl, events()[2:])
	if tl.DivergedAt() != 2 {
		t.Errorf("DivergedAt = %d, want 2", tl.DivergedAt())
	}
	if last, _ := tl.LastCanonical(); last.ID != "e2" {
		t.Errorf("LastCanonical = %s, want e2", last.ID)
	}

	w := tl.Window(2)
	if len(w) != 2 || w[0].ID != "g1" || w[1].ID != "g2" {
		t.Errorf("Window(2) = %v", w)
	}
	if len(tl.Window(10)) != 4 {
		t.Error("Window larger than timeline should return everything")
	}
}

func TestEntriesRecordChanges(t *testing.T) {
	tl := New()
	build(t, tl, events())
	entries := tl.Entries()
	if len(entries[0].Changes) != 0 {
		t.Errorf("e1 changed nothing, got %v", entries[0].Changes)
	}
	if ch := entries[1].Changes["alarm"]; ch.To != models.BoolValue(true) {
		t.Errorf("e2 alarm change = %+v", ch)
	}
}
