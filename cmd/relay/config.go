package main

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=4444" validate:"min=1,max=65535"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	WriteTimeout        time.Duration `env:"WRITE_TIMEOUT,default=5s" validate:"gt=0"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	TelemetryBufferSize int           `env:"TELEMETRY_BUFFER_SIZE,default=1024" validate:"min=1"`
	HeartbeatInterval   time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"gte=0"`
}

// loadConfig reads an optional .env file, then the environment.
func loadConfig() (Config, error) {
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
