package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// General contains worker, cache, and log location settings.
type General struct {
	// Workers is the resolve-phase worker pool size; 0 selects the number
	// of available CPUs.
	Workers      int    `toml:"workers"`
	Verbose      bool   `toml:"verbose"`
	LogDir       string `toml:"log_dir"`
	CachePath    string `toml:"cache_path"`
	CacheEnabled bool   `toml:"cache_enabled"`
}

// Quality contains the scoring parameters.
type Quality struct {
	// CodecMultipliers maps codec family to its perceptual efficiency
	// factor. Unknown codecs use 1.0.
	CodecMultipliers map[string]float64 `toml:"codec_multipliers"`
	// LosslessBonus is added to the kbps bitrate of lossless files so they
	// always outrank lossy files.
	LosslessBonus float64 `toml:"lossless_bonus"`
}

// Convert contains transcoding settings.
type Convert struct {
	OutputFormat    string `toml:"output_format"`
	OpusBitrate     int    `toml:"opus_bitrate"`
	OpusCompression int    `toml:"opus_compression"`
	AACBitrate      int    `toml:"aac_bitrate"`
	MP3Bitrate      int    `toml:"mp3_bitrate"`
	DeleteOriginal  bool   `toml:"delete_original"`
	AlwaysConvert   bool   `toml:"always_convert"`
	ConvertDown     bool   `toml:"convert_down"`
}

// Reconcile contains the duplicate decision policy.
type Reconcile struct {
	NeverDowngrade bool `toml:"never_downgrade"`
	Destructive    bool `toml:"destructive"`
	LinkMode       bool `toml:"link_mode"`
	Fingerprint    bool `toml:"fingerprint"`
}

// Naming controls how tags map to grouping keys and folder names.
type Naming struct {
	PreferArtist  bool `toml:"prefer_artist"`
	MaxNameLength int  `toml:"max_name_length"`
}

// Logging contains log output settings.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tonearm.
type Config struct {
	General   General   `toml:"general"`
	Quality   Quality   `toml:"quality"`
	Convert   Convert   `toml:"convert"`
	Reconcile Reconcile `toml:"reconcile"`
	Naming    Naming    `toml:"naming"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tonearm/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tonearm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.General.CachePath, err = expandPath(c.General.CachePath); err != nil {
		return err
	}
	if strings.TrimSpace(c.General.LogDir) != "" {
		if c.General.LogDir, err = expandPath(c.General.LogDir); err != nil {
			return err
		}
	}
	c.Convert.OutputFormat = strings.ToLower(strings.TrimSpace(c.Convert.OutputFormat))
	if c.Convert.OutputFormat == "" {
		c.Convert.OutputFormat = "opus"
	}

	multipliers := make(map[string]float64, len(c.Quality.CodecMultipliers))
	for codec, value := range c.Quality.CodecMultipliers {
		multipliers[strings.ToLower(strings.TrimSpace(codec))] = value
	}
	c.Quality.CodecMultipliers = multipliers
	return nil
}

// EnsureDirectories creates the directories mutating runs depend on.
func (c *Config) EnsureDirectories() error {
	if dir := filepath.Dir(c.General.CachePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.General.LogDir) != "" {
		if err := os.MkdirAll(c.General.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.General.LogDir, err)
		}
	}
	return nil
}

// FFprobeBinary returns the ffprobe executable name used for extraction.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// FFmpegBinary returns the ffmpeg executable name used for transcoding.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FpcalcBinary returns the chromaprint executable name used for
// fingerprinting.
func (c *Config) FpcalcBinary() string {
	return "fpcalc"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
