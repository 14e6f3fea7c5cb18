package world

import (
	"errors"
	"math"
	"testing"

	"github.com/tatianab/branching-scenes/internal/models"
)

func testVars() []models.Variable {
	return []models.Variable{
		{Name: "alarm", Type: models.TypeBool, Initial: models.BoolValue(false)},
		{Name: "allies", Type: models.TypeNumber, Initial: models.NumberValue(0)},
		{Name: "alliance", Type: models.TypeEnum, Initial: models.EnumValue("loyal"), Options: []string{"loyal", "wavering", "broken"}},
	}
}

func TestApplyDeltaIsPure(t *testing.T) {
	s := New(testVars(), "hangar")
	next, err := s.ApplyDelta(models.Delta{
		"alarm":  models.Set(models.BoolValue(true)),
		"allies": models.Add(2),
	})
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}

	if v, _ := s.Value("alarm"); v != models.BoolValue(false) {
		t.Errorf("original state changed: alarm = %v", v)
	}
	if v, _ := next.Value("alarm"); v != models.BoolValue(true) {
		t.Errorf("alarm = %v, want true", v)
	}
	if v, _ := next.Value("allies"); v != models.NumberValue(2) {
		t.Errorf("allies = %v, want 2", v)
	}
}

func TestApplyDeltaErrors(t *testing.T) {
	s := New(testVars(), "hangar")
	tests := []struct {
		name  string
		delta models.Delta
		want  error
	}{
		{"unknown variable", models.Delta{"morale": models.Set(models.NumberValue(1))}, ErrUnknownVariable},
		{"wrong type", models.Delta{"alarm": models.Set(models.NumberValue(1))}, ErrTypeMismatch},
		{"add to bool", models.Delta{"alarm": models.Add(1)}, ErrTypeMismatch},
		{"enum outside options", models.Delta{"alliance": models.Set(models.EnumValue("traitor"))}, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.ApplyDelta(tt.delta); !errors.Is(err, tt.want) {
				t.Fatalf("ApplyDelta error = %v, want %v", err, tt.want)
			}
			if err := s.Check(tt.delta); !errors.Is(err, tt.want) {
				t.Fatalf("Check error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddOverflow(t *testing.T) {
	s := New(testVars(), "hangar")
	big, err := s.ApplyDelta(models.Delta{"allies": models.Set(models.NumberValue(math.MaxInt))})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := big.ApplyDelta(models.Delta{"allies": models.Add(1)}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("MaxInt + 1: error = %v, want ErrTypeMismatch", err)
	}

	small, err := s.ApplyDelta(models.Delta{"allies": models.Set(models.NumberValue(math.MinInt))})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := small.ApplyDelta(models.Delta{"allies": models.Add(-1)}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("MinInt - 1: error = %v, want ErrTypeMismatch", err)
	}
	if next, err := big.ApplyDelta(models.Delta{"allies": models.Add(-1)}); err != nil {
		t.Errorf("MaxInt - 1: %v", err)
	} else if v, _ := next.Value("allies"); v != models.NumberValue(math.MaxInt-1) {
		t.Errorf("allies = %v", v)
	}
}

func TestApplyTracksRoomAndStage(t *testing.T) {
	s := New(testVars(), "hangar")

	s, err := s.Apply(models.Event{ID: "e1", Room: "hangar", Participants: []string{"darrow", "sevro"}})
	if err != nil {
		t.Fatal(err)
	}
	s, err = s.Apply(models.Event{ID: "e2", Room: "hangar", Participants: []string{"mustang"}, Departures: []string{"sevro"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Present(); len(got) != 2 || got[0] != "darrow" || got[1] != "mustang" {
		t.Fatalf("present = %v, want [darrow mustang]", got)
	}

	s, err = s.Apply(models.Event{
		ID: "e3", Room: "bridge", Participants: []string{"lysander", "vox"},
		Introduces: []models.Character{{ID: "vox", Name: "Vox"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Room() != "bridge" {
		t.Errorf("room = %q, want bridge", s.Room())
	}
	if s.IsPresent("darrow") || !s.IsPresent("lysander") {
		t.Errorf("stage not replaced on room change: %v", s.Present())
	}
	if _, ok := s.Introduced("vox"); !ok {
		t.Error("introduced character not tracked")
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := New(testVars(), "hangar")
	s, _ = s.Apply(models.Event{ID: "e1", Room: "hangar", Participants: []string{"darrow"}, Delta: models.Delta{"allies": models.Add(1)}})

	snap := s.Snapshot()
	snap.Vars["allies"] = models.NumberValue(99)
	if v, _ := s.Value("allies"); v != models.NumberValue(1) {
		t.Fatalf("editing a snapshot changed the state: allies = %v", v)
	}

	snap = s.Snapshot()
	for range 3 {
		if _, err := s.ApplyDelta(models.Delta{"morale": models.Add(1)}); err == nil {
			t.Fatal("expected failure")
		}
	}
	restored := Restore(snap)
	if !restored.Equal(s) {
		t.Fatalf("restored state differs: %+v vs %+v", restored.Snapshot(), s.Snapshot())
	}
	if _, err := restored.ApplyDelta(models.Delta{"alarm": models.Set(models.BoolValue(true))}); err != nil {
		t.Fatalf("restored state lost its schema: %v", err)
	}
}

func TestChanges(t *testing.T) {
	s := New(testVars(), "hangar")
	next, err := s.ApplyDelta(models.Delta{"allies": models.Add(1), "alarm": models.Set(models.BoolValue(false))})
	if err != nil {
		t.Fatal(err)
	}
	ch := s.Changes(next)
	if len(ch) != 1 {
		t.Fatalf("changes = %v, want only allies", ch)
	}
	if ch["allies"].From != models.NumberValue(0) || ch["allies"].To != models.NumberValue(1) {
		t.Errorf("allies change = %+v", ch["allies"])
	}
}
