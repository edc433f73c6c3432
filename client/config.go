package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/puyokura/roomchat/api"
	"github.com/puyokura/roomchat/feed"
	"github.com/puyokura/roomchat/model"
)

type Config struct {
	Server struct {
		BaseURL       string        `mapstructure:"base_url"`
		SessionCookie string        `mapstructure:"session_cookie"`
		CookieName    string        `mapstructure:"cookie_name"`
		Timeout       time.Duration `mapstructure:"timeout"`
	} `mapstructure:"server"`

	Poll struct {
		Interval   time.Duration `mapstructure:"interval"`
		MaxBackoff time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"poll"`

	Log struct {
		File  string `mapstructure:"file"`
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	UI struct {
		// StartRoom is "id:name" of a room to join on startup.
		StartRoom string `mapstructure:"start_room"`
	} `mapstructure:"ui"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:5000")
	v.SetDefault("server.session_cookie", "")
	v.SetDefault("server.cookie_name", api.DefaultSessionCookie)
	v.SetDefault("server.timeout", "10s")
	v.SetDefault("poll.interval", feed.DefaultInterval.String())
	v.SetDefault("poll.max_backoff", feed.DefaultMaxBackoff.String())
	v.SetDefault("log.file", "roomchat.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.start_room", "")
}

// loadConfig reads roomchat.yaml (optional), ROOMCHAT_* env vars and any flags
// already bound to v, in increasing order of precedence.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("ROOMCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("roomchat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "roomchat"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.base_url %q: must be an absolute http(s) url", c.Server.BaseURL)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.UI.StartRoom != "" {
		if _, ok := c.startRoom(); !ok {
			return fmt.Errorf("ui.start_room %q: want id:name", c.UI.StartRoom)
		}
	}
	return nil
}

func (c *Config) startRoom() (model.Chatroom, bool) {
	id, name, ok := strings.Cut(c.UI.StartRoom, ":")
	if !ok || id == "" || name == "" {
		return model.Chatroom{}, false
	}
	return model.Chatroom{ID: model.ID(id), Name: name}, true
}

func (c *Config) feedConfig() feed.Config {
	return feed.Config{Interval: c.Poll.Interval, MaxBackoff: c.Poll.MaxBackoff}
}
