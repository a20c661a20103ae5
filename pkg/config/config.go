package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Scheme  SchemeConfig  `yaml:"scheme"`
	Storage StorageConfig `yaml:"storage"`
	Dataset DatasetConfig `yaml:"dataset"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type SchemeConfig struct {
	Name      string `yaml:"name"`      // LogSRCi, LogSRC or PiBas
	SecParam  int    `yaml:"sec_param"` // key length in bits
	Placement string `yaml:"placement"` // hiding or revealing
	Index2    string `yaml:"index2"`    // locality or hashed
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // ram, disk, sqlite or mysql
	Path    string `yaml:"path"`    // disk directory or sqlite file
	DSN     string `yaml:"dsn"`     // mysql
}

type DatasetConfig struct {
	CSV        string `yaml:"csv"`
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
	Collection string `yaml:"collection"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the /metrics listener
}

func defaults() *Config {
	return &Config{
		Scheme: SchemeConfig{
			Name:      "LogSRCi",
			SecParam:  128,
			Placement: "hiding",
			Index2:    "locality",
		},
		Storage: StorageConfig{
			Backend: "ram",
			Path:    "rangesse_data",
		},
		Dataset: DatasetConfig{
			MongoDB:    "rangesse",
			Collection: "id_keyword_ops",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configPath over the defaults. An empty path tries rangesse.yaml
// and configs/rangesse.yaml, falling back to the defaults.
func Load(configPath string) (*Config, error) {
	cfg := defaults()

	if configPath == "" {
		for _, p := range []string{"rangesse.yaml", "configs/rangesse.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, fmt.Errorf("parse %s: %w", p, err)
				}
				break
			}
		}
		applyDefaults(cfg)
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", configPath, err)
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	d := defaults()
	if cfg.Scheme.Name == "" {
		cfg.Scheme.Name = d.Scheme.Name
	}
	if cfg.Scheme.SecParam == 0 {
		cfg.Scheme.SecParam = d.Scheme.SecParam
	}
	if cfg.Scheme.Placement == "" {
		cfg.Scheme.Placement = d.Scheme.Placement
	}
	if cfg.Scheme.Index2 == "" {
		cfg.Scheme.Index2 = d.Scheme.Index2
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = d.Storage.Backend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = d.Storage.Path
	}
	if cfg.Dataset.MongoDB == "" {
		cfg.Dataset.MongoDB = d.Dataset.MongoDB
	}
	if cfg.Dataset.Collection == "" {
		cfg.Dataset.Collection = d.Dataset.Collection
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
}

func (c *Config) Validate() error {
	switch c.Scheme.Name {
	case "LogSRCi", "LogSRC", "PiBas":
	default:
		return fmt.Errorf("scheme.name: unknown scheme %q", c.Scheme.Name)
	}
	switch c.Scheme.SecParam {
	case 128, 192, 256:
	default:
		return fmt.Errorf("scheme.sec_param: %d is not 128, 192 or 256", c.Scheme.SecParam)
	}
	switch c.Storage.Backend {
	case "ram", "disk", "sqlite":
	case "mysql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn: required by the mysql backend")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	return nil
}
