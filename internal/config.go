package internal

import (
	"fmt"
	"time"
	"wa-relay/errors"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`

	StoreDriver     string `env:"STORE_DRIVER,default=sqlite" validate:"oneof=sqlite badger"`
	SQLiteFilepath  string `env:"SQLITE_FILEPATH,default=dump.db" validate:"required_if=StoreDriver sqlite"`
	BadgerFilepath  string `env:"BADGER_FILEPATH,default=data/badger" validate:"required_if=StoreDriver badger"`
	BlugeFilepath   string `env:"BLUGE_FILEPATH"`
	SessionFilepath string `env:"SESSION_FILEPATH,default=session.db" validate:"required"`
	LimitMessages   *int   `env:"LIMIT_MESSAGES"`

	CompletionProvider string `env:"COMPLETION_PROVIDER,default=openai" validate:"oneof=openai gemini"`
	OpenAIAPIKey       string `env:"OPENAI_API_KEY" validate:"required_if=CompletionProvider openai"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL" validate:"omitempty,url"`
	GeminiAPIKey       string `env:"GEMINI_API_KEY" validate:"required_if=CompletionProvider gemini"`
	CompletionModel    string `env:"COMPLETION_MODEL"`

	TriggerPrefix string `env:"TRIGGER_PREFIX,default=gpt:" validate:"required"`
	AllowGroups   bool   `env:"ALLOW_GROUPS,default=false"`

	BufferSize      int           `env:"BUFFER_SIZE,default=100" validate:"gt=0"`
	NumberOfWorkers int           `env:"NUMBER_OF_WORKERS,default=4" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	MetricInterval  time.Duration `env:"METRIC_INTERVAL,default=1m" validate:"gt=0"`
	SinkTimeout     time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`

	CensoredDir     string `env:"CENSORED_DIR"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`

	Host      string `env:"HOST,default=localhost"`
	Port      int    `env:"PORT,default=8080" validate:"gte=0,lte=65535"`
	DebugPort int    `env:"DEBUG_PORT,default=8081" validate:"gte=0,lte=65535"`
}

var validate = validator.New()

// Load reads an optional .env file then the environment.
// Variables already set in the environment win over the file.
func Load(filenames ...string) (Config, error) {
	if err := godotenv.Load(filenames...); err != nil && len(filenames) > 0 {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if _, err := CharacterRune(config.CharReplacement); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return config, nil
}

// APIKey returns the credential of the selected completion provider.
func (c Config) APIKey() string {
	if c.CompletionProvider == "gemini" {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
