package pipeline

import "testing"

func TestParseMode(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want ActivationMode
		ok   bool
	}{
		{"", Toggle, true},
		{"toggle", Toggle, true},
		{" Hold ", Hold, true},
		{"push-to-talk", Hold, true},
		{"sometimes", Toggle, false},
	} {
		got, err := ParseMode(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseMode(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestStatusBusy(t *testing.T) {
	busy := map[Status]bool{Idle: false, Recording: true, Transcribing: true, Rewriting: true, Inserting: true, Error: false}
	for s, want := range busy {
		if s.Busy() != want {
			t.Errorf("%s.Busy() = %v", s, !want)
		}
	}
	if Status(42).String() != "status(42)" {
		t.Errorf("String() = %q", Status(42).String())
	}
}

func TestEffectiveInstructions(t *testing.T) {
	if EffectiveInstructions("  \n") != DefaultInstructions {
		t.Error("blank instructions not replaced")
	}
	if EffectiveInstructions("custom") != "custom" {
		t.Error("custom instructions replaced")
	}
}
