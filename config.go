package trawler

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Config is the configuration instance the rest of trawler should access for
// global configuration values. See TrawlerConfig for available members.
var Config TrawlerConfig

// ConfigName is the path (can be relative or absolute) to the config file
// that is read at startup if it exists. Environment variables always override
// whatever the file sets.
var ConfigName = "trawler.yaml"

func init() {
	err := readConfig()
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("Did not find config file %v, continuing with defaults", ConfigName)
			err = readEnvironment()
		}
		if err != nil {
			panic(err.Error())
		}
	}
}

// TrawlerConfig defines the available global configuration parameters for
// trawler. Values come from defaults, then an optional yaml file, then the
// environment variables named in the `env` comments below.
type TrawlerConfig struct {
	Redis struct {
		// URL of the coordination store, env REDIS_URL.
		URL string `yaml:"url"`
	} `yaml:"redis"`

	Mongo struct {
		// URL of the page store, env MONGO_URL.
		URL string `yaml:"url"`
		// DB is the database name, env MONGO_DB.
		DB string `yaml:"db"`
	} `yaml:"mongo"`

	Fetcher struct {
		// Concurrency is the worker count and the per-pool connection cap,
		// env CONCURRENCY.
		Concurrency int `yaml:"concurrency"`
		// DomainCooldownSeconds is the politeness interval per host, env
		// DOMAIN_COOLDOWN_SECONDS.
		DomainCooldownSeconds float64 `yaml:"domain_cooldown_seconds"`
		// RequestTimeoutSeconds is the per-request HTTP timeout, env
		// REQUEST_TIMEOUT_SECONDS.
		RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
		// MaxContentSizeBytes caps HTML bodies; larger pages are stored with
		// empty html. Env MAX_CONTENT_SIZE_BYTES.
		MaxContentSizeBytes int64 `yaml:"max_content_size_bytes"`
		// UserAgent is sent on every request and used for robots.txt
		// matching, env USER_AGENT.
		UserAgent string `yaml:"user_agent"`
		// SeedURLs are pushed into the frontier on `run`, env SEED_URLS
		// (comma separated).
		SeedURLs []string `yaml:"seed_urls"`
		// AllowedDomains restricts extracted links to these hosts
		// (case-insensitive, leading www. stripped). Empty means all hosts.
		// Env ALLOWED_DOMAINS (comma separated).
		AllowedDomains []string `yaml:"allowed_domains"`
		// MaxPages stops a run once the visited cardinality has grown by
		// this many since run start; 0 means unbounded. Env MAX_PAGES.
		MaxPages int64 `yaml:"max_pages"`
		// RobotsTTL is how long a cached robots.txt stays fresh, env
		// ROBOTS_TTL (duration string).
		RobotsTTL string `yaml:"robots_ttl"`
		// MaxDNSCacheEntries caps the dialer's DNS cache, env
		// MAX_DNS_CACHE_ENTRIES.
		MaxDNSCacheEntries int `yaml:"max_dns_cache_entries"`
	} `yaml:"fetcher"`

	Console struct {
		// Port the web console listens on, env CONSOLE_PORT.
		Port int `yaml:"port"`
		// TemplateDirectory holds the console templates.
		TemplateDirectory string `yaml:"template_directory"`
	} `yaml:"console"`
}

// SetDefaultConfig resets the Config object to default values, regardless of
// what was set by any configuration file or environment variable.
func SetDefaultConfig() {
	Config.Redis.URL = "redis://localhost:6379/0"

	Config.Mongo.URL = "mongodb://localhost:27017"
	Config.Mongo.DB = "crawler"

	Config.Fetcher.Concurrency = 200
	Config.Fetcher.DomainCooldownSeconds = 1.0
	Config.Fetcher.RequestTimeoutSeconds = 15
	Config.Fetcher.MaxContentSizeBytes = 3 * 1024 * 1024
	Config.Fetcher.UserAgent = "DistributedCrawler/1.0"
	Config.Fetcher.SeedURLs = nil
	Config.Fetcher.AllowedDomains = nil
	Config.Fetcher.MaxPages = 0
	Config.Fetcher.RobotsTTL = "24h"
	Config.Fetcher.MaxDNSCacheEntries = 20000

	Config.Console.Port = 3000
	Config.Console.TemplateDirectory = "console/templates"
}

// ReadConfigFile sets a new path to find the trawler yaml config file and
// forces a reload of the config.
func ReadConfigFile(path string) error {
	ConfigName = path
	return readConfig()
}

// MustReadConfigFile calls ReadConfigFile and panics on error.
func MustReadConfigFile(path string) {
	err := ReadConfigFile(path)
	if err != nil {
		panic(err.Error())
	}
}

func readConfig() error {
	SetDefaultConfig()

	data, err := os.ReadFile(ConfigName)
	if err != nil {
		return err
	}
	err = yaml.Unmarshal(data, &Config)
	if err != nil {
		return fmt.Errorf("failed to unmarshal yaml from config file (%v): %v", ConfigName, err)
	}
	log.Infof("Loaded config file %v", ConfigName)

	return readEnvironment()
}

// readEnvironment applies the environment variable overrides on top of
// whatever the defaults and yaml file produced.
func readEnvironment() error {
	var errs []string

	envString := func(name string, target *string) {
		if v := os.Getenv(name); v != "" {
			*target = v
		}
	}
	envInt := func(name string, target *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%v failed to parse: %v", name, err))
				return
			}
			*target = n
		}
	}
	envInt64 := func(name string, target *int64) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%v failed to parse: %v", name, err))
				return
			}
			*target = n
		}
	}
	envFloat := func(name string, target *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%v failed to parse: %v", name, err))
				return
			}
			*target = f
		}
	}
	envCSV := func(name string, target *[]string) {
		if v := os.Getenv(name); v != "" {
			*target = splitCSV(v)
		}
	}

	envString("REDIS_URL", &Config.Redis.URL)
	envString("MONGO_URL", &Config.Mongo.URL)
	envString("MONGO_DB", &Config.Mongo.DB)
	envInt("CONCURRENCY", &Config.Fetcher.Concurrency)
	envFloat("DOMAIN_COOLDOWN_SECONDS", &Config.Fetcher.DomainCooldownSeconds)
	envInt("REQUEST_TIMEOUT_SECONDS", &Config.Fetcher.RequestTimeoutSeconds)
	envInt64("MAX_CONTENT_SIZE_BYTES", &Config.Fetcher.MaxContentSizeBytes)
	envString("USER_AGENT", &Config.Fetcher.UserAgent)
	envCSV("SEED_URLS", &Config.Fetcher.SeedURLs)
	envCSV("ALLOWED_DOMAINS", &Config.Fetcher.AllowedDomains)
	envInt64("MAX_PAGES", &Config.Fetcher.MaxPages)
	envString("ROBOTS_TTL", &Config.Fetcher.RobotsTTL)
	envInt("MAX_DNS_CACHE_ENTRIES", &Config.Fetcher.MaxDNSCacheEntries)
	envInt("CONSOLE_PORT", &Config.Console.Port)

	if err := assertConfigInvariants(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		for _, e := range errs {
			log.Errorf("Config error: %v", e)
		}
		return fmt.Errorf("config error:\n\t%v", strings.Join(errs, "\n\t"))
	}
	return nil
}

func assertConfigInvariants() error {
	var errs []string

	fet := &Config.Fetcher
	if fet.Concurrency < 1 {
		errs = append(errs, "Fetcher.Concurrency must be greater than 0")
	}
	if fet.DomainCooldownSeconds < 0 {
		errs = append(errs, "Fetcher.DomainCooldownSeconds must not be negative")
	}
	if fet.RequestTimeoutSeconds < 1 {
		errs = append(errs, "Fetcher.RequestTimeoutSeconds must be 1s or larger")
	}
	if fet.MaxContentSizeBytes < 1 {
		errs = append(errs, "Fetcher.MaxContentSizeBytes must be greater than 0")
	}
	if _, err := time.ParseDuration(fet.RobotsTTL); err != nil {
		errs = append(errs, fmt.Sprintf("Fetcher.RobotsTTL failed to parse: %v", err))
	}
	if fet.MaxDNSCacheEntries < 1 {
		errs = append(errs, "Fetcher.MaxDNSCacheEntries must be greater than 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%v", strings.Join(errs, "\n\t"))
	}
	return nil
}

// RequestTimeout returns Fetcher.RequestTimeoutSeconds as a duration.
func RequestTimeout() time.Duration {
	return time.Duration(Config.Fetcher.RequestTimeoutSeconds) * time.Second
}

// DomainCooldown returns Fetcher.DomainCooldownSeconds as a duration.
func DomainCooldown() time.Duration {
	return time.Duration(Config.Fetcher.DomainCooldownSeconds * float64(time.Second))
}

// RobotsTTL returns Fetcher.RobotsTTL as a duration. The string is validated
// at config load, so a parse failure here falls back to the 24h default
// rather than propagating.
func RobotsTTL() time.Duration {
	d, err := time.ParseDuration(Config.Fetcher.RobotsTTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// AllowedDomainSet returns Fetcher.AllowedDomains as a lookup set with hosts
// lowercased and leading "www." stripped, or nil if no restriction is
// configured.
func AllowedDomainSet() map[string]bool {
	if len(Config.Fetcher.AllowedDomains) == 0 {
		return nil
	}
	set := make(map[string]bool, len(Config.Fetcher.AllowedDomains))
	for _, d := range Config.Fetcher.AllowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "www.")
		if d != "" {
			set[d] = true
		}
	}
	return set
}

func splitCSV(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
