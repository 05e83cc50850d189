package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type flagValues struct {
	configPath     string
	addr           string
	driver         string
	dsn            string
	logLevel       string
	logFormat      string
	requestTimeout time.Duration
}

// Load builds the configuration in priority order:
// 1. Defaults
// 2. TOML file named by -config or TASKS_CONFIG
// 3. Environment variables
// 4. CLI flags
func Load(fs *flag.FlagSet, args []string, getenv func(string) string) (*Config, error) {
	fv := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()

	path := fv.configPath
	if path == "" {
		path = strings.TrimSpace(getenv("TASKS_CONFIG"))
	}
	if path != "" {
		if err := loadConfigFile(&cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := loadFromEnv(&cfg, getenv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	applyFlags(&cfg, fs, fv)
	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	fv := &flagValues{}
	fs.StringVar(&fv.configPath, "config", "", "Path to a TOML config file")
	fs.StringVar(&fv.addr, "addr", "", "Listen address (default "+DefaultAddr+")")
	fs.StringVar(&fv.driver, "db-driver", "", "Store driver: memory, sqlite, postgres or mysql")
	fs.StringVar(&fv.dsn, "db-dsn", "", "Store DSN or sqlite file path")
	fs.StringVar(&fv.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	fs.StringVar(&fv.logFormat, "log-format", "", "Log format: json or text")
	fs.DurationVar(&fv.requestTimeout, "request-timeout", 0, "Per-request timeout")
	return fv
}

// applyFlags copies only the flags that were set on the command line.
func applyFlags(cfg *Config, fs *flag.FlagSet, fv *flagValues) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = fv.addr
		case "db-driver":
			cfg.Store.Driver = fv.driver
		case "db-dsn":
			cfg.Store.DSN = fv.dsn
		case "log-level":
			cfg.Log.Level = fv.logLevel
		case "log-format":
			cfg.Log.Format = fv.logFormat
		case "request-timeout":
			cfg.HTTP.RequestTimeout = fv.requestTimeout
		}
	})
}

// loadConfigFile overlays TOML from path onto cfg. Unknown keys are an error.
func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func loadFromEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	str("TASKS_ADDR", &cfg.Addr)
	str("TASKS_DB_DRIVER", &cfg.Store.Driver)
	str("TASKS_DB_DSN", &cfg.Store.DSN)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("TASKS_TRACING", &cfg.Tracing.Exporter)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	str("OTEL_SERVICE_NAME", &cfg.Tracing.ServiceName)

	if v := strings.TrimSpace(getenv("TASKS_CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.HTTP.CORSOrigins = origins
	}

	if v := strings.TrimSpace(getenv("TASKS_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TASKS_REQUEST_TIMEOUT: %w", err)
		}
		cfg.HTTP.RequestTimeout = d
	}
	if v := strings.TrimSpace(getenv("TASKS_RATE_LIMIT_RPS")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TASKS_RATE_LIMIT_RPS: %w", err)
		}
		cfg.RateLimit.RPS = f
	}
	if v := strings.TrimSpace(getenv("TASKS_RATE_LIMIT_BURST")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TASKS_RATE_LIMIT_BURST: %w", err)
		}
		cfg.RateLimit.Burst = n
	}
	if v := strings.TrimSpace(getenv("TASKS_METRICS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKS_METRICS: %w", err)
		}
		cfg.Metrics.Enabled = b
	}
	return nil
}

func normalize(cfg *Config) {
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Tracing.Exporter = strings.ToLower(strings.TrimSpace(cfg.Tracing.Exporter))
}
