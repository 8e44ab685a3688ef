package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
)

func loadDefault(t *testing.T) *ini.File {
	t.Helper()
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, []byte(defaultINI))
	require.NoError(t, err)
	return f
}

func TestDecodeTypedValues(t *testing.T) {
	t.Parallel()

	cfg, err := Decode(loadDefault(t))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 3*time.Second, cfg.SpiderSleep())
	assert.Equal(t, 20, cfg.Spider.InsertThreshold)
	assert.Equal(t, 36, cfg.Website.ActressesPageLimit)
	assert.Equal(t, "count", cfg.Website.GroupPageOrderBy)
}

func TestDecodeEnvOverride(t *testing.T) {
	t.Setenv("AVMOO_WEBSITE_USE_CACHE", "false")
	t.Setenv("AVMOO_WEBSITE_PAGE_LIMIT", "12")

	cfg, err := Decode(loadDefault(t))
	require.NoError(t, err)
	assert.False(t, cfg.Website.UseCache)
	assert.Equal(t, 12, cfg.Website.PageLimit)
}

func TestDecodeEnvBooleanSpellings(t *testing.T) {
	t.Setenv("AVMOO_WEBSITE_USE_CACHE", "no")
	t.Setenv("AVMOO_WEBSITE_AUTO_OPEN_SITE_ON_RUN", "On")

	cfg, err := Decode(loadDefault(t))
	require.NoError(t, err)
	assert.False(t, cfg.Website.UseCache)
	assert.True(t, cfg.Website.AutoOpenSiteOnRun)
}

func TestDecodeIniBooleanSpellings(t *testing.T) {
	t.Parallel()

	f := loadDefault(t)
	f.Section("website").Key("use_cache").SetValue("no")
	f.Section("website").Key("auto_open_site_on_run").SetValue("yes")

	cfg, err := Decode(f)
	require.NoError(t, err)
	assert.False(t, cfg.Website.UseCache)
	assert.True(t, cfg.Website.AutoOpenSiteOnRun)
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Base:     BaseConfig{AvmooSite: "https://x.test", DBFile: "a.db", Country: "en"},
		Requests: RequestsConfig{Timeout: 1},
		Website:  WebsiteConfig{PageLimit: 10},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"site", func(c *Config) { c.Base.AvmooSite = "" }, "base.avmoo_site"},
		{"db", func(c *Config) { c.Base.DBFile = "" }, "base.db_file"},
		{"country", func(c *Config) { c.Base.Country = "zz" }, "unknown country"},
		{"page limit", func(c *Config) { c.Website.PageLimit = 0 }, "website.page_limit"},
		{"timeout", func(c *Config) { c.Requests.Timeout = 0 }, "requests.timeout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := base
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
