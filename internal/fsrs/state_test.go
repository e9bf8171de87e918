package fsrs

import (
	"encoding/json"
	"testing"
)

func TestStateZeroValueIsNew(t *testing.T) {
	var s State
	if s != New {
		t.Errorf("zero State = %v, want New", s)
	}
	if !s.IsValid() {
		t.Error("New should be valid")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		New:        "New",
		Learning:   "Learning",
		Review:     "Review",
		Relearning: "Relearning",
		State(-1):  "State(-1)",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	for _, s := range []State{New, Learning, Review, Relearning} {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", s, err)
		}
		var back State
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if back != s {
			t.Errorf("round trip %v -> %s -> %v", s, data, back)
		}
	}

	var s State
	if err := json.Unmarshal([]byte(`"Suspended"`), &s); err == nil {
		t.Error("Unmarshal of unknown state should fail")
	}
}
