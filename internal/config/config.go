// Package config loads Fare's runtime configuration from an optional YAML
// file and FARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sharedtable/fare/internal/models"
	"github.com/sharedtable/fare/internal/partition"
)

// PolicyConfig is the file/env form of a partition.GroupSizePolicy.
type PolicyConfig struct {
	Min         int    `mapstructure:"min"`
	Max         int    `mapstructure:"max"`
	Ideal       int    `mapstructure:"ideal"`
	Description string `mapstructure:"description"`
}

// RestaurantConfig is one entry of the seed restaurant list.
type RestaurantConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Cuisine string `mapstructure:"cuisine"`
}

type Config struct {
	Port             int                     `mapstructure:"port"`
	DatabasePath     string                  `mapstructure:"database_path"`
	JWTSecret        string                  `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration           `mapstructure:"token_ttl"`
	OperatorEmails   []string                `mapstructure:"operator_emails"`
	LogLevel         string                  `mapstructure:"log_level"`
	AMQPURL          string                  `mapstructure:"amqp_url"`
	EventsExchange   string                  `mapstructure:"events_exchange"`
	MatchConcurrency int                     `mapstructure:"match_concurrency"`
	MatchTimeout     time.Duration           `mapstructure:"match_timeout"`
	Policies         map[string]PolicyConfig `mapstructure:"policies"`
	Restaurants      []RestaurantConfig      `mapstructure:"restaurants"`
}

var defaultRestaurants = []map[string]any{
	{"name": "The Long Table", "address": "118 Valencia St, San Francisco, CA", "cuisine": "Californian"},
	{"name": "Osteria Fiorella", "address": "1250 Ocean Ave, San Francisco, CA", "cuisine": "Italian"},
	{"name": "Nopalito", "address": "306 Broderick St, San Francisco, CA", "cuisine": "Mexican"},
	{"name": "Burma Love", "address": "211 Valencia St, San Francisco, CA", "cuisine": "Burmese"},
	{"name": "Kin Khao", "address": "55 Cyril Magnin St, San Francisco, CA", "cuisine": "Thai"},
	{"name": "Zuni Cafe", "address": "1658 Market St, San Francisco, CA", "cuisine": "Mediterranean"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("database_path", "./data/fare.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("operator_emails", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("amqp_url", "")
	v.SetDefault("events_exchange", "fare.events")
	v.SetDefault("match_concurrency", 4)
	v.SetDefault("match_timeout", "30s")

	for dt, p := range partition.DefaultPolicies() {
		key := "policies." + dt.String()
		v.SetDefault(key+".min", p.Min)
		v.SetDefault(key+".max", p.Max)
		v.SetDefault(key+".ideal", p.Ideal)
		v.SetDefault(key+".description", p.Description)
	}

	v.SetDefault("restaurants", defaultRestaurants)
}

// Load reads configuration. When path is empty, ./fare.yaml is used if it
// exists; a missing default file is not an error. Environment variables
// override file values, e.g. FARE_PORT or FARE_POLICIES_REGULAR_MAX. A .env
// file in the working directory is loaded into the environment first;
// variables that are already set are left alone.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("fare")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.MatchConcurrency < 1 {
		cfg.MatchConcurrency = 1
	}

	return &cfg, nil
}

// PolicyTable builds and validates the group-size policy table. Any problem
// is returned as a *partition.InvalidPolicyError.
func (c *Config) PolicyTable() (*partition.PolicyTable, error) {
	names := make([]string, 0, len(c.Policies))
	for name := range c.Policies {
		names = append(names, name)
	}
	sort.Strings(names)

	policies := make(map[partition.DinnerType]partition.GroupSizePolicy, len(c.Policies))
	for _, name := range names {
		dt, err := partition.ParseDinnerType(name)
		if err != nil {
			return nil, &partition.InvalidPolicyError{DinnerType: name, Reason: "unknown dinner-type"}
		}
		p := c.Policies[name]
		policies[dt] = partition.GroupSizePolicy{
			Min:         p.Min,
			Max:         p.Max,
			Ideal:       p.Ideal,
			Description: p.Description,
		}
	}

	return partition.NewPolicyTable(policies)
}

// SeedRestaurants returns the configured restaurants as models.
func (c *Config) SeedRestaurants() []*models.Restaurant {
	out := make([]*models.Restaurant, 0, len(c.Restaurants))
	for _, r := range c.Restaurants {
		if r.Name == "" {
			continue
		}
		out = append(out, &models.Restaurant{Name: r.Name, Address: r.Address, Cuisine: r.Cuisine})
	}
	return out
}
