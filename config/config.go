// Package config loads rescache settings from RESCACHE_* environment
// variables.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Store  Store
	API    API
	Daemon Daemon
	Router Router
	Log    Log
}

type Store struct {
	Path      string `envconfig:"RESCACHE_DB_PATH" default:"rescache.sqlite" description:"SQLite database file, or :memory:"`
	BatchRows int    `envconfig:"RESCACHE_BATCH_ROWS" default:"500"`
	KVBackend string `envconfig:"RESCACHE_KV_BACKEND" default:"sqlite" description:"One of memory or sqlite"`
}

type API struct {
	URL      string        `envconfig:"RESCACHE_API_URL" default:"http://127.0.0.1:9200"`
	Token    string        `envconfig:"RESCACHE_TOKEN" description:"Bearer token; overrides the stored session"`
	RetryMax int           `envconfig:"RESCACHE_API_RETRY_MAX" default:"3"`
	Timeout  time.Duration `envconfig:"RESCACHE_API_TIMEOUT" default:"30s"`
}

type Daemon struct {
	URL     string `envconfig:"RESCACHE_DAEMON_URL" default:"http://127.0.0.1:9300"`
	Listen  string `envconfig:"RESCACHE_DAEMON_LISTEN" default:"127.0.0.1:9300"`
	Channel string `envconfig:"RESCACHE_DAEMON_CHANNEL" default:"searchCache"`
}

type Router struct {
	LocalFirstTypes []string      `envconfig:"RESCACHE_LOCAL_FIRST_TYPES" default:"target,session,user,group,role,alias"`
	FillTimeout     time.Duration `envconfig:"RESCACHE_FILL_TIMEOUT" default:"30s"`
	Locale          string        `envconfig:"RESCACHE_LOCALE" default:"en"`
}

type Log struct {
	Level string `envconfig:"RESCACHE_LOG_LEVEL" default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}
