package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	credentialFile = "credential"
	// KeyEnv overrides every other credential source.
	KeyEnv = "YADA_API_KEY"
)

// Credentials stores the API key in a 0600 file. Environment variables
// take precedence over the file.
type Credentials struct {
	path    string
	envKeys []string
}

// NewCredentials keeps the key next to the config file. providerEnv is
// consulted after KeyEnv.
func NewCredentials(configPath, providerEnv string) *Credentials {
	c := &Credentials{
		path:    filepath.Join(filepath.Dir(configPath), credentialFile),
		envKeys: []string{KeyEnv},
	}
	if providerEnv != "" {
		c.envKeys = append(c.envKeys, providerEnv)
	}
	return c
}

func (c *Credentials) Path() string { return c.path }

func (c *Credentials) Load() (string, bool) {
	key, _ := c.Source()
	return key, key != ""
}

// Source returns the key and where it came from.
func (c *Credentials) Source() (string, string) {
	for _, env := range c.envKeys {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, "$" + env
		}
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", ""
	}
	if v := strings.TrimSpace(string(data)); v != "" {
		return v, c.path
	}
	return "", ""
}

func (c *Credentials) Save(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return errors.New("empty API key")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(c.path, []byte(credential+"\n"), 0o600); err != nil {
		return err
	}
	return os.Chmod(c.path, 0o600)
}

func (c *Credentials) Delete() error {
	err := os.Remove(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
