package config

import (
	"flag"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flags holds parsed command-line flag values and which were set.
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// EffectiveConfigResult is the merged view of flags, config file and
// environment that the rest of the server runs with.
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// ParseFlags parses command-line flags and records which were set.
func ParseFlags() Flags {
	addrPtr := flag.String("addr", ":8080", "HTTP listen address")
	dbPtr := flag.String("db", "./.database", "Pebble DB path")
	cfgPtr := flag.String("config", "./config.yaml", "Path to config file")
	flag.Parse()
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: set}
}

// Load reads and parses the YAML config file at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveConfigPath returns the config path to use: an explicit flag wins,
// then FORUMDB_CONFIG, then the flag default.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if v := strings.TrimSpace(os.Getenv("FORUMDB_CONFIG")); v != "" {
		return v
	}
	return flagPath
}

// ApplyEnvOverrides mutates cfg with FORUMDB_* environment values and
// reports whether any env var was used.
func ApplyEnvOverrides(cfg *Config) bool {
	used := false
	parseList := func(v string) []string {
		var parts []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				parts = append(parts, s)
			}
		}
		return parts
	}

	if v := os.Getenv("FORUMDB_ADDR"); v != "" {
		used = true
		if h, p, err := net.SplitHostPort(v); err == nil {
			cfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pi
			}
		} else {
			cfg.Server.Address = v
		}
	}
	if v := os.Getenv("FORUMDB_DB_PATH"); v != "" {
		used = true
		cfg.Server.DBPath = v
	}
	if v := os.Getenv("FORUMDB_LOG_LEVEL"); v != "" {
		used = true
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FORUMDB_CORS_ORIGINS"); v != "" {
		used = true
		cfg.Security.CORS.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("FORUMDB_RATE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			used = true
			cfg.Security.RateLimit.RPS = f
		}
	}
	if v := os.Getenv("FORUMDB_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			used = true
			cfg.Security.RateLimit.Burst = n
		}
	}
	if v := os.Getenv("FORUMDB_IP_WHITELIST"); v != "" {
		used = true
		cfg.Security.IPWhitelist = parseList(v)
	}
	if v := os.Getenv("FORUMDB_API_BACKEND_KEYS"); v != "" {
		used = true
		cfg.Security.APIKeys.Backend = parseList(v)
	}
	if v := os.Getenv("FORUMDB_API_FRONTEND_KEYS"); v != "" {
		used = true
		cfg.Security.APIKeys.Frontend = parseList(v)
	}
	if v := os.Getenv("FORUMDB_API_ADMIN_KEYS"); v != "" {
		used = true
		cfg.Security.APIKeys.Admin = parseList(v)
	}
	if c := os.Getenv("FORUMDB_TLS_CERT"); c != "" {
		used = true
		cfg.Server.TLS.CertFile = c
	}
	if k := os.Getenv("FORUMDB_TLS_KEY"); k != "" {
		used = true
		cfg.Server.TLS.KeyFile = k
	}
	return used
}

// LoadEffective resolves the final configuration: the config file (when
// present) is the base, env vars override it, and explicit addr/db flags
// win over both.
func LoadEffective(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := Load(cfgPath)
	switch {
	case err == nil:
		res.Source = "config"
	case os.IsNotExist(err) && !flags.Set["config"]:
		cfg = &Config{}
		res.Source = "flags"
	default:
		return res, err
	}

	if ApplyEnvOverrides(cfg) && res.Source != "config" {
		res.Source = "env"
	}

	addr := cfg.Addr()
	if addr == "" || flags.Set["addr"] {
		addr = flags.Addr
	}
	dbPath := cfg.Server.DBPath
	if dbPath == "" || flags.Set["db"] {
		dbPath = flags.DB
	}

	res.Config = cfg
	res.Addr = addr
	res.DBPath = dbPath
	return res, nil
}
