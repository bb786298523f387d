// Package config loads the application settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/xxxsen/gamedeck/internal/pathid"
)

const envPrefix = "GAMEDECK"

// Config describes the application level configuration.
type Config struct {
	DataDir           string      `mapstructure:"data_dir" validate:"required"`
	Database          string      `mapstructure:"database" validate:"required"`
	SystemsConfig     string      `mapstructure:"systems_config" validate:"required"`
	IgnoreGamelist    bool        `mapstructure:"ignore_gamelist"`
	ParseGamelistOnly bool        `mapstructure:"parse_gamelist_only"`
	MameDat           string      `mapstructure:"mame_dat"`
	FBNeoDat          string      `mapstructure:"fbneo_dat"`
	Log               LogConfig   `mapstructure:"log"`
	Serve             ServeConfig `mapstructure:"serve"`
	S3                S3Config    `mapstructure:"s3"`
}

// LogConfig mirrors the options of the logger.
type LogConfig struct {
	File        string `mapstructure:"file"`
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	MaxRotate   int    `mapstructure:"max_rotate" validate:"gte=0"`
	MaxSize     int    `mapstructure:"max_size" validate:"gte=0"`
	MaxKeepDays int    `mapstructure:"max_keep_days" validate:"gte=0"`
	Console     bool   `mapstructure:"console"`
}

// ServeConfig configures the HTTP browsing API.
type ServeConfig struct {
	Bind string `mapstructure:"bind" validate:"required"`
}

// S3Config holds the options for accessing the object store.
type S3Config struct {
	Host            string `mapstructure:"host"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	Prefix          string `mapstructure:"prefix"`
}

var validate = validator.New()

// DefaultPaths lists where a settings file is looked for when none is given.
func DefaultPaths() []string {
	return []string{
		"./config.json",
		pathid.ExpandHome("~/.gamedeck/config.json"),
		"/etc/gamedeck/config.json",
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("data_dir", "~/.gamedeck")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("serve.bind", ":8080")
	v.SetDefault("s3.region", "us-east-1")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range settingKeys(reflect.TypeOf(Config{}), "") {
		// AutomaticEnv only answers for keys viper already knows about.
		_ = v.BindEnv(key)
	}
	return v
}

// settingKeys lists the dotted mapstructure keys of every leaf field of t.
func settingKeys(t reflect.Type, prefix string) []string {
	var keys []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct {
			keys = append(keys, settingKeys(f.Type, name)...)
			continue
		}
		keys = append(keys, name)
	}
	return keys
}

// LoadFirst loads the first existing settings file among paths. When none
// exists the defaults are returned.
func LoadFirst(paths ...string) (*Config, error) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return decode(newViper(), "defaults")
}

// Load reads settings from a single file. The format follows the extension.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return decode(v, path)
}

func decode(v *viper.Viper, source string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", source, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", source, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.DataDir = filepath.Clean(pathid.ExpandHome(c.DataDir))
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "gamelist.db")
	}
	if c.SystemsConfig == "" {
		c.SystemsConfig = filepath.Join(c.DataDir, "es_systems.cfg")
	}
	c.Database = pathid.ExpandHome(c.Database)
	c.SystemsConfig = pathid.ExpandHome(c.SystemsConfig)
	c.MameDat = pathid.ExpandHome(c.MameDat)
	c.FBNeoDat = pathid.ExpandHome(c.FBNeoDat)
	c.Log.File = pathid.ExpandHome(c.Log.File)
}

// Validate performs basic validation of the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateS3 checks the options needed to reach the object store.
func (c *Config) ValidateS3() error {
	if c.S3.Host == "" {
		return errors.New("config.s3.host must be set")
	}
	if c.S3.Bucket == "" {
		return errors.New("config.s3.bucket must be set")
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s %s", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
