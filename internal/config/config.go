package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App        App        `yaml:"app"`
	HTTP       HTTP       `yaml:"http"`
	Log        Log        `yaml:"log"`
	Postgres   Postgres   `yaml:"postgres"`
	Redis      Redis      `yaml:"redis"`
	Kafka      Kafka      `yaml:"kafka"`
	Correlator Correlator `yaml:"correlator"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"correlator"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"comprobantes_db"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"1"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"chat-events"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"correlator-group-1"`
}

// Correlator holds the matching parameters. LiveWaitMS bounds how long the
// live state machine waits for a follow-up text before giving up on a media
// event; WindowSeconds bounds the historical forward search the same way.
type Correlator struct {
	Group         string `yaml:"group" env:"CORRELATOR_GROUP" env-default:"Comprobantes"`
	LiveWaitMS    int    `yaml:"live_wait_ms" env:"CORRELATOR_LIVE_WAIT_MS" env-default:"60000"`
	WindowSeconds int    `yaml:"window_seconds" env:"CORRELATOR_WINDOW_SECONDS" env-default:"60"`
	BatchSize     int    `yaml:"batch_size" env:"CORRELATOR_BATCH_SIZE" env-default:"500"`
	HistoryFile   string `yaml:"history_file" env:"CORRELATOR_HISTORY_FILE" env-default:""`
}

func (c Correlator) LiveWait() time.Duration {
	return time.Duration(c.LiveWaitMS) * time.Millisecond
}

func (c Correlator) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
