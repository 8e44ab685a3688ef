// Package config loads, repairs and persists the INI configuration and
// decodes it into typed settings via Viper.
package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config captures every setting read from the INI file.
type Config struct {
	Base     BaseConfig     `mapstructure:"base"`
	Spider   SpiderConfig   `mapstructure:"spider"`
	Requests RequestsConfig `mapstructure:"requests"`
	Website  WebsiteConfig  `mapstructure:"website"`
}

// BaseConfig locates the remote mirror and the local database.
type BaseConfig struct {
	AvmooSite   string `mapstructure:"avmoo_site"`
	DBFile      string `mapstructure:"db_file"`
	Country     string `mapstructure:"country"`
	CountryName string `mapstructure:"country_name"`
}

// SpiderConfig tunes the scraping pipeline.
type SpiderConfig struct {
	Sleep              float64 `mapstructure:"sleep"`
	InsertThreshold    int     `mapstructure:"insert_threshold"`
	ContinuedSkipLimit int     `mapstructure:"continued_skip_limit"`
}

// RequestsConfig controls outbound HTTP requests.
type RequestsConfig struct {
	Timeout   float64 `mapstructure:"timeout"`
	UserAgent string  `mapstructure:"user_agent"`
}

// WebsiteConfig controls the local site and its caches.
type WebsiteConfig struct {
	CDN                string `mapstructure:"cdn"`
	PageLimit          int    `mapstructure:"page_limit"`
	ActressesPageLimit int    `mapstructure:"actresses_page_limit"`
	GroupPageLimit     int    `mapstructure:"group_page_limit"`
	GroupPageOrderBy   string `mapstructure:"group_page_order_by"`
	UseCache           bool   `mapstructure:"use_cache"`
	AutoOpenSiteOnRun  bool   `mapstructure:"auto_open_site_on_run"`
}

// Decode converts an INI file into Config. Environment variables prefixed with
// AVMOO_ override file values, e.g. AVMOO_WEBSITE_USE_CACHE=false.
func Decode(f *ini.File) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AVMOO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, section := range f.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		for _, key := range section.Keys() {
			v.SetDefault(section.Name()+"."+key.Name(), key.String())
		}
	}

	var cfg Config
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		iniBoolHook,
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hooks); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// iniBoolHook accepts the INI spellings yes/no/on/off for bool fields, from
// the file and from the environment alike.
func iniBoolHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Bool {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	return normalizeBool(s), nil
}

func normalizeBool(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "on":
		return "true"
	case "no", "off":
		return "false"
	default:
		return value
	}
}

// Validate enforces required values and sane limits.
func (c Config) Validate() error {
	if c.Base.AvmooSite == "" {
		return fmt.Errorf("base.avmoo_site must be set")
	}
	if c.Base.DBFile == "" {
		return fmt.Errorf("base.db_file must be set")
	}
	if _, ok := CountryNames[c.Base.Country]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCountry, c.Base.Country)
	}
	if c.Website.PageLimit <= 0 {
		return fmt.Errorf("website.page_limit must be > 0")
	}
	if c.Requests.Timeout <= 0 {
		return fmt.Errorf("requests.timeout must be > 0")
	}
	return nil
}

// RequestTimeout converts requests.timeout (seconds) into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Requests.Timeout * float64(time.Second))
}

// SpiderSleep converts spider.sleep (seconds) into a duration.
func (c Config) SpiderSleep() time.Duration {
	return time.Duration(c.Spider.Sleep * float64(time.Second))
}
