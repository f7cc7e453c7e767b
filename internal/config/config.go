// Package config loads linkscope settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults ([Default])
//  2. a TOML file: --config, or $XDG_CONFIG_HOME/linkscope/config.toml
//  3. a .env file in the working directory (never overrides the real
//     environment)
//  4. LINKSCOPE_* environment variables, e.g. LINKSCOPE_BACKEND_URL,
//     LINKSCOPE_LAYOUT_ALGORITHM, LINKSCOPE_SERVER_STORE
//
// Command-line flags are applied by the CLI on top of the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	lserrors "github.com/matzehuels/linkscope/pkg/errors"
	"github.com/matzehuels/linkscope/pkg/expansion"
	"github.com/matzehuels/linkscope/pkg/layout"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LINKSCOPE"

// Storage backends for the reference server.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreBadger = "badger"
)

// Config is the full configuration.
type Config struct {
	Backend   BackendConfig     `toml:"backend" envconfig:"BACKEND"`
	Expansion expansion.Options `toml:"expansion" envconfig:"EXPANSION"`
	Layout    layout.Config     `toml:"layout" envconfig:"LAYOUT"`
	Server    ServerConfig      `toml:"server" envconfig:"SERVER"`
}

// BackendConfig selects where the explorer gets neighbors and stores
// views. Dataset wins over URL when both are set.
type BackendConfig struct {
	URL      string        `toml:"url" envconfig:"URL" validate:"omitempty,url"`
	Dataset  string        `toml:"dataset" envconfig:"DATASET"`
	Timeout  time.Duration `toml:"timeout" envconfig:"TIMEOUT" validate:"gte=0"`
	CacheTTL time.Duration `toml:"cache_ttl" envconfig:"CACHE_TTL" validate:"gte=0"`
	CacheDir string        `toml:"cache_dir" envconfig:"CACHE_DIR"`
	NoCache  bool          `toml:"no_cache" envconfig:"NO_CACHE"`
}

// ServerConfig configures `linkscope serve`.
type ServerConfig struct {
	Addr          string `toml:"addr" envconfig:"ADDR" validate:"required,hostname_port"`
	Dataset       string `toml:"dataset" envconfig:"DATASET"`
	Store         string `toml:"store" envconfig:"STORE" validate:"oneof=memory file redis mongo badger"`
	RedisURL      string `toml:"redis_url" envconfig:"REDIS_URL" validate:"required_if=Store redis"`
	MongoURI      string `toml:"mongo_uri" envconfig:"MONGO_URI" validate:"required_if=Store mongo"`
	MongoDatabase string `toml:"mongo_database" envconfig:"MONGO_DATABASE" validate:"required_if=Store mongo"`
	BadgerPath    string `toml:"badger_path" envconfig:"BADGER_PATH"`
	FileDir       string `toml:"file_dir" envconfig:"FILE_DIR"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:      "http://localhost:8080",
			Timeout:  10 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Expansion: expansion.Options{
			Limit:      expansion.DefaultLimit,
			Attempts:   1,
			Timeout:    expansion.DefaultTimeout,
			RetryDelay: expansion.DefaultRetryDelay,
		},
		Layout: layout.DefaultConfig(),
		Server: ServerConfig{
			Addr:          ":8080",
			Store:         StoreMemory,
			MongoDatabase: "linkscope",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/linkscope/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "linkscope", "config.toml"), nil
}

// Load builds the configuration. An empty path reads the default file if
// it exists; an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, lserrors.Wrap(lserrors.ErrCodeValidation, err, "read config %s", path)
			}
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, lserrors.Wrap(lserrors.ErrCodeValidation, err, "read .env")
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, lserrors.Wrap(lserrors.ErrCodeValidation, err, "read environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode parses TOML from r on top of the defaults and validates the
// result. The environment is not consulted.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, lserrors.Wrap(lserrors.ErrCodeValidation, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration against its struct tags and the
// registered layout algorithms.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fieldMessage(fe)
			}
			return lserrors.New(lserrors.ErrCodeValidation, "invalid config: %s", strings.Join(msgs, "; "))
		}
		return lserrors.Wrap(lserrors.ErrCodeValidation, err, "invalid config")
	}
	if alg := c.Layout.WithDefaults().Algorithm; !layout.Default().Has(alg) {
		return lserrors.New(lserrors.ErrCodeValidation, "invalid config: unknown layout algorithm %q (have %s)",
			alg, strings.Join(layout.Default().Algorithms(), ", "))
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "url":
		return field + " must be a URL"
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	return toml.NewEncoder(w).Encode(c)
}
