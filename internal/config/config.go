package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App AppConfig
	Log LogConfig
}

type AppConfig struct {
	MaxUploadSize int64
	JPEGQuality   int
	OutputSuffix  string
}

type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	// Load .env file if it exists (don't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SCRUB_MAX_UPLOAD_SIZE", 10*1024*1024) // 10MB
	v.SetDefault("SCRUB_JPEG_QUALITY", 95)
	v.SetDefault("SCRUB_OUTPUT_SUFFIX", "_clean")
	v.SetDefault("SCRUB_LOG_LEVEL", "info")
	v.SetDefault("SCRUB_LOG_FORMAT", "console")
	v.SetDefault("SCRUB_LOG_OUTPUT", "stderr")

	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			MaxUploadSize: v.GetInt64("SCRUB_MAX_UPLOAD_SIZE"),
			JPEGQuality:   v.GetInt("SCRUB_JPEG_QUALITY"),
			OutputSuffix:  v.GetString("SCRUB_OUTPUT_SUFFIX"),
		},
		Log: LogConfig{
			Level:  v.GetString("SCRUB_LOG_LEVEL"),
			Format: v.GetString("SCRUB_LOG_FORMAT"),
			Output: v.GetString("SCRUB_LOG_OUTPUT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.App.MaxUploadSize <= 0 {
		return fmt.Errorf("SCRUB_MAX_UPLOAD_SIZE must be positive, got %d", c.App.MaxUploadSize)
	}
	if c.App.JPEGQuality < 1 || c.App.JPEGQuality > 100 {
		return fmt.Errorf("SCRUB_JPEG_QUALITY must be between 1 and 100, got %d", c.App.JPEGQuality)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("SCRUB_LOG_FORMAT must be json or console, got %q", c.Log.Format)
	}
	return nil
}
