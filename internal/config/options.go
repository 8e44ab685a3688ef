package config

import "errors"

// Default file names, relative to the working directory.
const (
	DefaultUserPath    = "config.ini"
	DefaultDefaultPath = "config.ini.default"
)

// Option identifies one configuration entry.
type Option struct {
	Section string
	Key     string
}

func (o Option) String() string {
	return o.Section + "." + o.Key
}

// RequiredOptions is the versioned schema every persisted config must carry.
var RequiredOptions = []Option{
	{"base", "avmoo_site"},
	{"base", "db_file"},
	{"base", "country"},

	{"spider", "sleep"},
	{"spider", "insert_threshold"},
	{"spider", "continued_skip_limit"},

	{"requests", "timeout"},
	{"requests", "user_agent"},

	{"website", "cdn"},
	{"website", "page_limit"},
	{"website", "actresses_page_limit"},
	{"website", "group_page_limit"},
	{"website", "group_page_order_by"},
	{"website", "use_cache"},
	{"website", "auto_open_site_on_run"},
}

// CountryName is derived from base.country at load time and never persisted.
var CountryName = Option{"base", "country_name"}

// CountryNames maps a locale code to its display name.
var CountryNames = map[string]string{
	"en": "English",
	"ja": "日本语",
	"tw": "正體中文",
	"cn": "简体中文",
}

var (
	// ErrMissingDefault means a required option had to be restored but the
	// default file does not define it either.
	ErrMissingDefault = errors.New("required option missing from default config")
	// ErrUnknownCountry means base.country has no entry in CountryNames.
	ErrUnknownCountry = errors.New("unknown country code")
)
