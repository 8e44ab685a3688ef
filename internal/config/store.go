package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/ini.v1"
)

// Store owns the user config file and repairs it against the shipped default.
type Store struct {
	userPath    string
	defaultPath string
	logger      *zap.Logger

	mu   sync.Mutex
	file *ini.File
}

// NewStore builds a Store. Empty paths fall back to DefaultUserPath and
// DefaultDefaultPath.
func NewStore(userPath, defaultPath string, logger *zap.Logger) *Store {
	if userPath == "" {
		userPath = DefaultUserPath
	}
	if defaultPath == "" {
		defaultPath = DefaultDefaultPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{userPath: userPath, defaultPath: defaultPath, logger: logger}
}

// ResolvePath returns the user config path when it exists, otherwise the
// default path.
func (s *Store) ResolvePath() string {
	if fileExists(s.userPath) {
		return s.userPath
	}
	return s.defaultPath
}

// Reconcile fills every required option missing from the user config with the
// default value and persists the result. Values the user already set and
// options outside the schema are left alone. Without a user config there is
// nothing to repair.
func (s *Store) Reconcile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !fileExists(s.userPath) {
		return nil
	}
	user, err := loadINI(s.userPath)
	if err != nil {
		return err
	}
	defaults := ini.Empty()
	if fileExists(s.defaultPath) {
		if defaults, err = loadINI(s.defaultPath); err != nil {
			return err
		}
	}

	for _, opt := range RequiredOptions {
		section, err := user.GetSection(opt.Section)
		if err != nil {
			if section, err = user.NewSection(opt.Section); err != nil {
				return fmt.Errorf("add section %s: %w", opt.Section, err)
			}
		}
		if section.HasKey(opt.Key) {
			continue
		}
		fallback, err := defaults.GetSection(opt.Section)
		if err != nil || !fallback.HasKey(opt.Key) {
			return fmt.Errorf("%w: %s (%s)", ErrMissingDefault, opt, s.defaultPath)
		}
		if _, err := section.NewKey(opt.Key, fallback.Key(opt.Key).String()); err != nil {
			return fmt.Errorf("restore %s: %w", opt, err)
		}
		s.logger.Info("restored config option from default", zap.String("option", opt.String()))
	}
	return s.save(user)
}

// Initialize reads the resolved config, derives base.country_name in memory
// and decodes the typed Config.
func (s *Store) Initialize() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.ResolvePath()
	f, err := loadINI(path)
	if err != nil {
		return Config{}, err
	}
	country := f.Section("base").Key("country").String()
	name, ok := CountryNames[country]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	f.Section(CountryName.Section).Key(CountryName.Key).SetValue(name)
	s.file = f

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, err
	}
	s.logger.Info("config loaded", zap.String("path", path), zap.String("country", country))
	return cfg, nil
}

// Load runs Reconcile followed by Initialize.
func (s *Store) Load() (Config, error) {
	if err := s.Reconcile(); err != nil {
		return Config{}, fmt.Errorf("reconcile config: %w", err)
	}
	return s.Initialize()
}

// Value returns an option from the in-memory config, including derived ones.
func (s *Store) Value(section, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return "", false
	}
	sec, err := s.file.GetSection(section)
	if err != nil || !sec.HasKey(key) {
		return "", false
	}
	return sec.Key(key).String(), true
}

// SetOption persists a single value to the user config. The write starts from
// the resolved config so a user file created this way carries every option.
func (s *Store) SetOption(section, key, value string) error {
	if section == CountryName.Section && key == CountryName.Key {
		return fmt.Errorf("%s is derived and cannot be set", CountryName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := loadINI(s.ResolvePath())
	if err != nil {
		return err
	}
	f.Section(section).Key(key).SetValue(value)
	if err := s.save(f); err != nil {
		return err
	}
	if s.file != nil {
		s.file.Section(section).Key(key).SetValue(value)
	}
	return nil
}

// save writes f to the user path without derived options.
func (s *Store) save(f *ini.File) error {
	if sec, err := f.GetSection(CountryName.Section); err == nil {
		sec.DeleteKey(CountryName.Key)
	}
	if err := f.SaveTo(s.userPath); err != nil {
		return fmt.Errorf("write config %s: %w", s.userPath, err)
	}
	return nil
}

// loadINI reads an INI file. Option names are case-insensitive and come back
// lowercased; section names keep their case.
func loadINI(path string) (*ini.File, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true, InsensitiveKeys: true}, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return f, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
