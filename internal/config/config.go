package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings of the csvcodec command.
type Config struct {
	// Encoding of input and output files.
	Encoding string `mapstructure:"encoding"`
	// Dialect is the name of the input dialect.
	Dialect string `mapstructure:"dialect"`
	// Shape is the row shape the input is read in.
	Shape string `mapstructure:"shape"`
	// Dialects is a YAML file with additional dialect definitions.
	Dialects string `mapstructure:"dialects"`
	// AutoCompress enables compression by file suffix.
	AutoCompress bool `mapstructure:"autocompress"`

	Output OutputConfig `mapstructure:"output"`
	Log    LogConfig    `mapstructure:"log"`
}

// OutputConfig controls how rows are re-emitted.
type OutputConfig struct {
	Encoding string `mapstructure:"encoding"`
	Dialect  string `mapstructure:"dialect"`
}

// LogConfig controls the logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
	// File additionally receives all records when set.
	File string `mapstructure:"file"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Encoding: "utf-8",
		Dialect:  "excel",
		Shape:    "list",
		Output: OutputConfig{
			Encoding: "utf-8",
			Dialect:  "excel",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a file and environment variables.
// Without an explicit file, csvcodec.{yaml,json,toml} is looked up in the
// working directory and its absence is not an error.
// Environment variables use the prefix "CSVCODEC" and the dot character in
// keys is replaced by an underscore. For example, "log.level" becomes
// "CSVCODEC_LOG_LEVEL".
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("csvcodec")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("CSVCODEC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts[:len(parts):len(parts)], tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
