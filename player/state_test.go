package player

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestState_JSONUsesSeconds(t *testing.T) {
	t.Parallel()

	f := newFakeFactory()
	c := newTestController(f, nil)
	if err := c.Load(context.Background(), track("a"), LoadOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := c.LoopSection(Section{Start: 1500 * time.Millisecond, End: 20 * time.Second, Repetitions: 2}); err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(c.State())
	if err != nil {
		t.Fatal(err)
	}
	var raw struct {
		Position float64 `json:"position"`
		Section  struct {
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Repetitions int     `json:"repetitions"`
		} `json:"section"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw.Section.Start != 1.5 || raw.Section.End != 20 || raw.Section.Repetitions != 2 {
		t.Errorf("section = %+v in %s, want seconds", raw.Section, data)
	}
	if raw.Position != 1.5 {
		t.Errorf("position = %v, want 1.5", raw.Position)
	}

	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Section == nil || back.Section.End != 20*time.Second || back.Section.Start != 1500*time.Millisecond {
		t.Errorf("decoded section = %+v", back.Section)
	}
}
