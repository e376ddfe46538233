package trace

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRecorderKeysByFullIdentity(t *testing.T) {
	r := NewRecorder()

	tx := Event{
		Key:  PacketKey{Dir: DirectionTx, Cell: 1, UE: 2, Bearer: 3, Count: 7},
		Size: 42,
		At:   10 * time.Millisecond,
	}
	rx := Event{
		Key:  PacketKey{Dir: DirectionRx, Cell: 1, UE: 2, Bearer: 3, Count: 7},
		Size: 42,
		At:   15 * time.Millisecond,
	}
	r.Record(tx)
	r.Record(rx)

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (tx and rx of the same COUNT are distinct keys)", r.Len())
	}

	got, ok := r.Lookup(tx.Key)
	if !ok {
		t.Fatal("Lookup(tx key) not found")
	}
	if got != tx {
		t.Errorf("Lookup(tx key) = %+v, want %+v", got, tx)
	}

	got, ok = r.Lookup(rx.Key)
	if !ok {
		t.Fatal("Lookup(rx key) not found")
	}
	if got.At != 15*time.Millisecond {
		t.Errorf("rx event At = %v, want 15ms", got.At)
	}
}

func TestRecorderLastWriteWins(t *testing.T) {
	r := NewRecorder()
	key := PacketKey{Dir: DirectionRx, Cell: 1, UE: 1, Bearer: 1, Count: 0}

	r.Record(Event{Key: key, Size: 10, At: time.Millisecond})
	r.Record(Event{Key: key, Size: 10, At: 5 * time.Millisecond})

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	got, _ := r.Lookup(key)
	if got.At != 5*time.Millisecond {
		t.Errorf("event At = %v, want the later observation (5ms)", got.At)
	}
}

func TestEventsSortedByTime(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Key: PacketKey{Dir: DirectionRx, Count: 2}, At: 30 * time.Millisecond})
	r.Record(Event{Key: PacketKey{Dir: DirectionTx, Count: 2}, At: 10 * time.Millisecond})
	r.Record(Event{Key: PacketKey{Dir: DirectionTx, Count: 1}, At: 10 * time.Millisecond})

	events := r.Events()
	if len(events) != 3 {
		t.Fatalf("Events() returned %d events, want 3", len(events))
	}
	if events[0].Key.Count != 1 || events[1].Key.Count != 2 {
		t.Errorf("same-instant events not ordered by COUNT: %+v", events)
	}
	if events[2].Key.Dir != DirectionRx {
		t.Errorf("latest event should sort last, got %+v", events[2])
	}
}

func TestRunIDIsValidUUID(t *testing.T) {
	r := NewRecorder()
	if _, err := uuid.Parse(r.RunID()); err != nil {
		t.Errorf("RunID() = %q is not a valid UUID: %v", r.RunID(), err)
	}
	if r.RunID() != r.RunID() {
		t.Error("RunID() must be stable for a recorder's lifetime")
	}
	if NewRecorder().RunID() == r.RunID() {
		t.Error("two recorders must not share a run identifier")
	}
}

func TestDirectionString(t *testing.T) {
	tests := []struct {
		dir  Direction
		want string
	}{
		{DirectionTx, "tx"},
		{DirectionRx, "rx"},
		{Direction(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.dir.String(); got != tt.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tt.dir, got, tt.want)
		}
	}
}
