package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const EnvConfigPath = "CONFIG_PATH"

type Config struct {
	Env       string    `yaml:"env" env-default:"local" env:"ENV"`
	Multicast Multicast `yaml:"multicast"`
	Request   Request   `yaml:"request"`
	Storage   Storage   `yaml:"storage"`
	Metrics   Metrics   `yaml:"metrics"`
}

type Multicast struct {
	Address        string `yaml:"address" env:"MCAST_ADDRESS" env-default:"225.4.5.6"`
	Port           uint16 `yaml:"port" env:"MCAST_PORT" env-default:"5775"`
	Interface      string `yaml:"interface" env:"MCAST_INTERFACE"`
	MaxPacketBytes int    `yaml:"max_packet_bytes" env:"MCAST_MAX_PACKET_BYTES" env-default:"102400"`
	TTL            int    `yaml:"ttl" env:"MCAST_TTL" env-default:"1"`
	Loopback       bool   `yaml:"loopback" env:"MCAST_LOOPBACK" env-default:"true"`
	Compress       bool   `yaml:"compress" env:"MCAST_COMPRESS"`
}

type Request struct {
	Timeout time.Duration `yaml:"timeout" env:"REQUEST_TIMEOUT" env-default:"2s"`
	Grace   time.Duration `yaml:"grace" env:"REQUEST_GRACE" env-default:"200ms"`
}

type Storage struct {
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"history.db"`
}

type Metrics struct {
	Address string `yaml:"address" env:"METRICS_ADDRESS"`
}

// MustLoad loads the config from path, or from CONFIG_PATH when path is
// empty. Without either only environment variables and defaults apply.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

func Load(path string) (*Config, error) {
	configPath := fetchConfigPath(path)

	var cfg Config

	if configPath == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read env: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	return &cfg, nil
}

// Priority: flag > env > default.
// default value is empty string.
func fetchConfigPath(flagValue string) string {
	res := flagValue

	if res == "" {
		res = os.Getenv(EnvConfigPath)
	}
	return res
}
