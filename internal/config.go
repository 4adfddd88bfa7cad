package internal

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host        string `env:"HOST,default=0.0.0.0"`
	Port        int    `env:"PORT,default=12345" validate:"gt=0,lte=65535"`
	AdminSecret string `env:"ADMIN_SECRET,default=admin123" validate:"required"`
	LogDir      string `env:"LOG_DIR,default=logs" validate:"required"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO"`

	MaxClients           int `env:"MAX_CLIENTS,default=128" validate:"gt=0"`
	MaxRooms             int `env:"MAX_ROOMS,default=128" validate:"gt=0"`
	UplinkBufferSize     int `env:"UPLINK_BUFFER_SIZE,default=256" validate:"gt=0"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=64" validate:"gt=0"`

	DispatchTick    time.Duration `env:"DISPATCH_TICK,default=300ms" validate:"gt=0"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`

	CharReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	FilterBinPath   string        `env:"FILTER_BIN_PATH"`
	FilterTimeout   time.Duration `env:"FILTER_TIMEOUT,default=2s" validate:"gt=0"`
}

// Load reads an optional .env file, binds the environment and validates the
// result.
func Load() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return config, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CharacterRune enforces a single-rune replacement character.
func (c Config) CharacterRune() (rune, error) {
	r := []rune(c.CharReplacement)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			c.CharReplacement,
		)
	}
	return r[0], nil
}
