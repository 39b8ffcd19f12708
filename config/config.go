// Package config reads and writes the TOML settings file and the API
// credential.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/BurntSushi/toml"

	"yada/encoder"
	"yada/hotkey"
	"yada/log"
	"yada/pipeline"
)

const (
	appDir   = "yada"
	fileName = "config.toml"
)

type File struct {
	Mode         string   `toml:"mode"`
	Hotkey       string   `toml:"hotkey"`
	DeviceIndex  *int     `toml:"device_index,omitempty"`
	Instructions string   `toml:"instructions"`
	API          API      `toml:"api"`
	Audio        Audio    `toml:"audio"`
	Insert       Insert   `toml:"insert"`
	Feedback     Feedback `toml:"feedback"`
}

type API struct {
	Provider        string   `toml:"provider"`
	BaseURL         string   `toml:"base_url"`
	TranscribeModel string   `toml:"transcribe_model"`
	RewriteModel    string   `toml:"rewrite_model"`
	UploadFormat    string   `toml:"upload_format"`
	Timeout         Duration `toml:"timeout"`
}

type Audio struct {
	// Gain multiplies captured samples; 0 keeps the backend default.
	Gain int `toml:"gain"`
}

type Insert struct {
	Direct           *bool    `toml:"direct"`
	TypeCommand      []string `toml:"type_command"`
	RestoreClipboard *bool    `toml:"restore_clipboard"`
	RestoreDelay     Duration `toml:"restore_delay"`
}

type Feedback struct {
	Beep *bool `toml:"beep"`
}

// Duration is a time.Duration written as a string such as "600ms".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func boolPtr(b bool) *bool { return &b }

func Defaults() File {
	return File{
		Mode:   pipeline.Toggle.String(),
		Hotkey: hotkey.DefaultBinding.String(),
		API: API{
			Provider:     "groq",
			UploadFormat: encoder.FormatWAV,
			Timeout:      Duration{60 * time.Second},
		},
		Insert: Insert{
			Direct:           boolPtr(true),
			RestoreClipboard: boolPtr(true),
			RestoreDelay:     Duration{600 * time.Millisecond},
		},
		Feedback: Feedback{Beep: boolPtr(true)},
	}
}

// DefaultPath returns config.toml under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, fileName), nil
}

// Parse decodes data and fills unset fields from Defaults.
func Parse(data []byte) (File, error) {
	var f File
	if _, err := toml.Decode(string(data), &f); err != nil {
		return Defaults(), err
	}
	if err := mergo.Merge(&f, Defaults()); err != nil {
		return Defaults(), err
	}
	return f, nil
}

func (f File) Validate() error {
	var errs []error
	if _, err := pipeline.ParseMode(f.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := hotkey.Parse(f.Hotkey); err != nil {
		errs = append(errs, fmt.Errorf("hotkey: %w", err))
	}
	if !encoder.ValidFormat(f.API.UploadFormat) {
		errs = append(errs, fmt.Errorf("unknown upload format %q (use wav or flac)", f.API.UploadFormat))
	}
	if f.DeviceIndex != nil && *f.DeviceIndex < 0 {
		errs = append(errs, fmt.Errorf("device_index must not be negative"))
	}
	return errors.Join(errs...)
}

func (f File) DirectInsert() bool { return f.Insert.Direct != nil && *f.Insert.Direct }
func (f File) RestoreClipboard() bool {
	return f.Insert.RestoreClipboard != nil && *f.Insert.RestoreClipboard
}
func (f File) Beep() bool { return f.Feedback.Beep != nil && *f.Feedback.Beep }

// Settings extracts what the orchestrator consumes. Invalid values fall
// back to their defaults.
func (f File) Settings() pipeline.Settings {
	s := pipeline.DefaultSettings()
	if m, err := pipeline.ParseMode(f.Mode); err == nil {
		s.Mode = m
	} else {
		log.Warnf("config: %v", err)
	}
	if b, err := hotkey.Parse(f.Hotkey); err == nil {
		s.Binding = b
	} else {
		log.Warnf("config: hotkey: %v", err)
	}
	if f.DeviceIndex != nil && *f.DeviceIndex >= 0 {
		idx := *f.DeviceIndex
		s.DeviceIndex = &idx
	}
	s.Instructions = f.Instructions
	return s
}

// Store is the settings repository backed by a TOML file.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Read returns the file merged with defaults. A missing file is not an
// error.
func (s *Store) Read() (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() (File, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), err
	}
	f, err := Parse(data)
	if err != nil {
		return f, fmt.Errorf("%s: %w", s.path, err)
	}
	return f, nil
}

// File is Read with errors logged and replaced by defaults.
func (s *Store) File() File {
	f, err := s.Read()
	if err != nil {
		log.Warnf("config: %v, using defaults", err)
	}
	return f
}

func (s *Store) Load() pipeline.Settings {
	return s.File().Settings()
}

// Save writes the settings subset into the file, keeping the other
// sections. An unparsable file is left alone.
func (s *Store) Save(st pipeline.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	f.Mode = st.Mode.String()
	f.Hotkey = st.Binding.String()
	f.DeviceIndex = nil
	if st.DeviceIndex != nil {
		idx := *st.DeviceIndex
		f.DeviceIndex = &idx
	}
	f.Instructions = st.Instructions
	return s.write(f)
}

// Write replaces the file with f.
func (s *Store) Write(f File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(f)
}

func (s *Store) write(f File) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
