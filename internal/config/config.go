package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"storyboard-server/internal/logger"
)

// Config holds the whole application configuration.
type Config struct {
	AppEnv     string `env:"APP_ENV" env-default:"development"`
	Logger     logger.Config
	HTTP       HTTPConfig
	Gemini     GeminiConfig
	Storyboard StoryboardConfig
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Port            string        `env:"HTTP_PORT" env-default:"8080"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GeminiConfig configures the generative API client.
type GeminiConfig struct {
	APIKey            string        `env:"GEMINI_API_KEY" env-required:"true"`
	BaseURL           string        `env:"GEMINI_BASE_URL" env-default:"https://generativelanguage.googleapis.com"`
	LyricsModel       string        `env:"GEMINI_LYRICS_MODEL" env-default:"gemini-2.5-flash"`
	StoryboardModel   string        `env:"GEMINI_STORYBOARD_MODEL" env-default:"gemini-2.5-pro"`
	VideoModel        string        `env:"GEMINI_VIDEO_MODEL" env-default:"veo-3.1-fast-generate-preview"`
	RequestTimeout    time.Duration `env:"GEMINI_REQUEST_TIMEOUT" env-default:"120s"`
	VideoPollInterval time.Duration `env:"GEMINI_VIDEO_POLL_INTERVAL" env-default:"10s"`
	VideoMaxWait      time.Duration `env:"GEMINI_VIDEO_MAX_WAIT" env-default:"10m"`
}

// StoryboardConfig holds the fixed generation parameters baked into the
// storyboard prompt. They are externally fixed constants in this system,
// not user-tunable settings.
type StoryboardConfig struct {
	VisualStyle string `env:"STORYBOARD_VISUAL_STYLE" env-default:"School of Remington"`
	TotalLength string `env:"STORYBOARD_TOTAL_LENGTH" env-default:"2 minutes"`
	AspectRatio string `env:"STORYBOARD_ASPECT_RATIO" env-default:"16:9"`
	SceneRange  string `env:"STORYBOARD_SCENE_RANGE" env-default:"8-12"`
}

// Load reads the configuration from environment variables and an optional
// .env file.
func Load() *Config {
	// Ignore the error, the .env file is optional.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	return &cfg
}
