package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"yada/hotkey"
	"yada/pipeline"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "config.toml"))
	got := s.Load()
	want := pipeline.DefaultSettings()
	if got.Mode != want.Mode || got.Binding != want.Binding || got.DeviceIndex != nil || got.Instructions != "" {
		t.Errorf("Load() = %+v, want defaults", got)
	}
}

func TestParseFillsDefaults(t *testing.T) {
	f, err := Parse([]byte(`
mode = "hold"
device_index = 2

[api]
provider = "openai"

[insert]
direct = false
`))
	if err != nil {
		t.Fatal(err)
	}
	if f.Hotkey != "ctrl+shift+space" {
		t.Errorf("hotkey = %q", f.Hotkey)
	}
	if f.API.Provider != "openai" || f.API.UploadFormat != "wav" || f.API.Timeout.Duration != time.Minute {
		t.Errorf("api = %+v", f.API)
	}
	if f.DirectInsert() {
		t.Error("explicit direct = false was overridden")
	}
	if !f.RestoreClipboard() || f.Insert.RestoreDelay.Duration != 600*time.Millisecond {
		t.Errorf("insert = %+v", f.Insert)
	}
	if !f.Beep() {
		t.Error("beep default lost")
	}

	s := f.Settings()
	if s.Mode != pipeline.Hold || s.DeviceIndex == nil || *s.DeviceIndex != 2 {
		t.Errorf("settings = %+v", s)
	}
}

func TestParseDurations(t *testing.T) {
	f, err := Parse([]byte("[api]\ntimeout = \"5s\"\n[insert]\nrestore_delay = \"1s\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if f.API.Timeout.Duration != 5*time.Second || f.Insert.RestoreDelay.Duration != time.Second {
		t.Errorf("got %v, %v", f.API.Timeout, f.Insert.RestoreDelay)
	}
	if _, err := Parse([]byte("[api]\ntimeout = \"soon\"\n")); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestLoadInvalidFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "mode = [broken")

	s := NewStore(path)
	if _, err := s.Read(); err == nil {
		t.Error("Read should report a parse error")
	}
	if got := s.Load(); got.Mode != pipeline.Toggle {
		t.Errorf("Load() = %+v, want defaults", got)
	}
	if err := s.Save(pipeline.DefaultSettings()); err == nil {
		t.Error("Save should refuse to overwrite an unparsable file")
	}
}

func TestSettingsInvalidValues(t *testing.T) {
	f := Defaults()
	f.Mode = "sometimes"
	f.Hotkey = "ctrl+nope"
	neg := -1
	f.DeviceIndex = &neg

	s := f.Settings()
	if s.Mode != pipeline.Toggle || s.Binding != hotkey.DefaultBinding || s.DeviceIndex != nil {
		t.Errorf("Settings() = %+v", s)
	}
	err := f.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"sometimes", "hotkey", "device_index"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() = %q, missing %q", err, want)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Errorf("Defaults().Validate() = %v", err)
	}
}

func TestSaveKeepsOtherSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yada", "config.toml")
	s := NewStore(path)

	f := Defaults()
	f.API.Provider = "openai"
	f.API.RewriteModel = "gpt-4o"
	f.Audio.Gain = 4
	if err := s.Write(f); err != nil {
		t.Fatal(err)
	}

	idx := 1
	b, _ := hotkey.Parse("alt+f9")
	err := s.Save(pipeline.Settings{Mode: pipeline.Hold, Binding: b, DeviceIndex: &idx, Instructions: "be brief"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.Mode != "hold" || got.Hotkey != "alt+f9" || *got.DeviceIndex != 1 || got.Instructions != "be brief" {
		t.Errorf("settings not saved: %+v", got)
	}
	if got.API.Provider != "openai" || got.API.RewriteModel != "gpt-4o" || got.Audio.Gain != 4 {
		t.Errorf("other sections lost: %+v", got)
	}

	if err := s.Save(pipeline.DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(); got.DeviceIndex != nil {
		t.Errorf("device index = %d, want nil", *got.DeviceIndex)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
