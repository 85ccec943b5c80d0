package engine

import "testing"

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"not-started to running", NotStarted, Running, false},
		{"not-started to done (cache-hit cascade)", NotStarted, Done, false},
		{"running to done", Running, Done, false},
		{"done to running is illegal", Done, Running, true},
		{"running to not-started is illegal", Running, NotStarted, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			state := map[string]State{"T1": c.from}
			err := transition(state, "T1", c.from, c.to)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected an error transitioning %s -> %s", c.from, c.to)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if state["T1"] != c.to {
				t.Fatalf("state not updated: got %s, want %s", state["T1"], c.to)
			}
		})
	}
}

func TestTransitionUnknownTask(t *testing.T) {
	state := map[string]State{}
	if err := transition(state, "ghost", NotStarted, Running); err == nil {
		t.Fatal("expected an error for an unknown task")
	}
}

func TestTransitionWrongCurrentState(t *testing.T) {
	state := map[string]State{"T1": Done}
	if err := transition(state, "T1", NotStarted, Running); err == nil {
		t.Fatal("expected an error when from doesn't match the current state")
	}
}

func TestReadyAndFirstMissing(t *testing.T) {
	present := map[string]bool{"a": true, "b": true}
	has := func(k string) bool { return present[k] }

	if !ready([]string{"a", "b"}, has) {
		t.Fatal("expected ready when all params present")
	}
	if ready([]string{"a", "c"}, has) {
		t.Fatal("expected not ready when a param is missing")
	}

	missing, ok := firstMissing([]string{"a", "c", "d"}, has)
	if !ok || missing != "c" {
		t.Fatalf("expected first missing %q, got %q (ok=%v)", "c", missing, ok)
	}

	if _, ok := firstMissing([]string{"a", "b"}, has); ok {
		t.Fatal("expected no missing param")
	}
}
