// Package file loads and saves the TOML configuration in the narrata
// config directory. Flags override config values; config values
// override the built-in defaults.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/narrata-labs/narrata-cli/internal/core/domain"
)

// configFileName is the configuration file inside the config directory.
const configFileName = "config.toml"

// TTSConfig configures the speech service clients.
type TTSConfig struct {
	// Endpoints lists one TTS service URL per inference device.
	Endpoints []string `toml:"endpoints"`

	// Speaker is the default voice name.
	Speaker string `toml:"speaker"`

	// Language is the default language hint.
	Language string `toml:"language"`

	// Instruct is an optional style instruction passed to the model.
	Instruct string `toml:"instruct"`

	// RequestsPerSecond caps the request rate per endpoint.
	// Zero disables client-side rate limiting.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Burst is the rate limiter burst size.
	Burst int `toml:"burst"`
}

// ConvertConfig configures the conversion pipeline.
type ConvertConfig struct {
	// ChunkSize is the synthesis chunk size budget in bytes.
	ChunkSize int `toml:"chunk_size"`

	// ChunkGap is the silence inserted between chunks, in seconds.
	ChunkGap float64 `toml:"chunk_gap"`

	// MaxRetries bounds synthesis retries per chunk.
	MaxRetries int `toml:"max_retries"`

	// MinChapterChars filters out front matter shorter than this.
	MinChapterChars int `toml:"min_chapter_chars"`

	// Bitrate is the AAC encoding bitrate.
	Bitrate string `toml:"bitrate"`

	// KeepWAV retains per-chapter WAV files after a successful run.
	KeepWAV bool `toml:"keep_wav"`

	// WorkDir holds intermediate files, defaults under the config dir.
	WorkDir string `toml:"work_dir"`
}

// Config is the persisted application configuration.
type Config struct {
	TTS     TTSConfig     `toml:"tts"`
	Convert ConvertConfig `toml:"convert"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TTS: TTSConfig{
			Endpoints:         []string{"http://127.0.0.1:8880"},
			Speaker:           "Aiden",
			Language:          "Auto",
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Convert: ConvertConfig{
			ChunkSize:       500,
			MaxRetries:      2,
			MinChapterChars: 20,
			Bitrate:         "64k",
		},
	}
}

// Validate checks the configuration for values the pipeline would
// reject later anyway, so a bad config fails before any work is done.
func (c *Config) Validate() error {
	if len(c.TTS.Endpoints) == 0 {
		return fmt.Errorf("%w: tts.endpoints is empty", domain.ErrInvalidInput)
	}
	for _, ep := range c.TTS.Endpoints {
		if ep == "" {
			return fmt.Errorf("%w: empty tts endpoint", domain.ErrInvalidInput)
		}
	}
	if c.Convert.ChunkSize <= 0 {
		return fmt.Errorf("%w: convert.chunk_size must be positive", domain.ErrInvalidInput)
	}
	if c.Convert.ChunkGap < 0 {
		return fmt.Errorf("%w: convert.chunk_gap must not be negative", domain.ErrInvalidInput)
	}
	if c.Convert.MaxRetries < 0 {
		return fmt.Errorf("%w: convert.max_retries must not be negative", domain.ErrInvalidInput)
	}
	if c.Convert.Bitrate == "" {
		return fmt.Errorf("%w: convert.bitrate is empty", domain.ErrInvalidInput)
	}
	return nil
}

// ConfigDir returns the directory holding per-user state.
// If dir is empty, defaults to ~/.narrata.
func ConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".narrata"), nil
}

// Load reads the configuration from configDir, merging the file over
// the defaults. A missing file yields the defaults unchanged.
func Load(configDir string) (Config, error) {
	dir, err := ConfigDir(configDir)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to configDir, creating it if needed.
func Save(configDir string, cfg Config) error {
	dir, err := ConfigDir(configDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
