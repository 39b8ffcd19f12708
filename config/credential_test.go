package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCredentialsFile(t *testing.T) {
	t.Setenv(KeyEnv, "")
	t.Setenv("GROQ_API_KEY", "")
	dir := t.TempDir()
	c := NewCredentials(filepath.Join(dir, "config.toml"), "GROQ_API_KEY")

	if _, ok := c.Load(); ok {
		t.Fatal("Load() ok with no credential")
	}
	if err := c.Save("  sk-file \n"); err != nil {
		t.Fatal(err)
	}
	key, ok := c.Load()
	if !ok || key != "sk-file" {
		t.Errorf("Load() = %q, %v", key, ok)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(c.Path())
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("mode = %v, want 0600", info.Mode().Perm())
		}
	}

	if err := c.Delete(); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Load(); ok {
		t.Error("credential survived Delete")
	}
	if err := c.Delete(); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if err := c.Save("   "); err == nil {
		t.Error("Save accepted an empty key")
	}
}

func TestCredentialsEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	c := NewCredentials(filepath.Join(dir, "config.toml"), "GROQ_API_KEY")
	if err := c.Save("sk-file"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("GROQ_API_KEY", "sk-provider")
	t.Setenv(KeyEnv, "")
	if key, src := c.Source(); key != "sk-provider" || src != "$GROQ_API_KEY" {
		t.Errorf("Source() = %q, %q", key, src)
	}

	t.Setenv(KeyEnv, "sk-yada")
	if key, src := c.Source(); key != "sk-yada" || src != "$"+KeyEnv {
		t.Errorf("Source() = %q, %q", key, src)
	}
}
