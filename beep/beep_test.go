package beep

import (
	"testing"

	"yada/pipeline"
)

func TestTick(t *testing.T) {
	s := tick(1000, 0.1, 0.5, 40)
	if len(s) != sampleRate/10 {
		t.Fatalf("len = %d, want %d", len(s), sampleRate/10)
	}
	var head, tail int
	for _, v := range s[:len(s)/4] {
		head = max(head, abs(int(v)))
	}
	for _, v := range s[3*len(s)/4:] {
		tail = max(tail, abs(int(v)))
	}
	if head > 32767/2+1 || tail >= head {
		t.Errorf("envelope head=%d tail=%d", head, tail)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestDoubleBeep(t *testing.T) {
	one := tick(350, 0.08, 0.6, 30)
	two := doubleBeep(350, 0.08, 0.05, 0.6, 30)
	gap := int(float64(sampleRate) * 0.05)
	if len(two) != 2*len(one)+gap {
		t.Errorf("len = %d, want %d", len(two), 2*len(one)+gap)
	}
}

func TestCues(t *testing.T) {
	var played []Sound
	c := &Cues{play: func(s Sound) { played = append(played, s) }}

	for _, st := range []pipeline.Status{
		pipeline.Idle, pipeline.Recording, pipeline.Transcribing, pipeline.Rewriting,
		pipeline.Inserting, pipeline.Idle, pipeline.Recording, pipeline.Error,
	} {
		c.StatusChanged(pipeline.Update{Status: st})
	}
	// Error straight from Recording gets no End cue.
	want := []Sound{Start, End, Start, Fail}
	if len(played) != len(want) {
		t.Fatalf("played %v, want %v", played, want)
	}
	for i := range want {
		if played[i] != want[i] {
			t.Errorf("played[%d] = %v, want %v", i, played[i], want[i])
		}
	}
}
