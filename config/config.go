/*
 *  Copyright (c) 2024-2025 Mikhail Knyazhev <markus621@yandex.ru>. All rights reserved.
 *  Use of this source code is governed by a BSD 3-Clause license that can be found in the LICENSE file.
 */

package config

import (
	"bytes"
	"fmt"
	"os"

	"go.osspkg.com/errors"
	"go.osspkg.com/logx"
	"gopkg.in/yaml.v3"

	"go.osspkg.com/echod/epoll"
	"go.osspkg.com/echod/metrics"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "ECHOD_CONFIG"

type (
	Config struct {
		Server  epoll.Config   `yaml:"server"`
		Metrics metrics.Config `yaml:"metrics"`
		Log     Log            `yaml:"log"`
	}

	Log struct {
		Level string `yaml:"level"`
	}
)

func Default() Config {
	return Config{
		Server: epoll.Config{}.WithDefaults(),
		Log:    Log{Level: "info"},
	}
}

// Load decodes the file at path over Default and validates the result.
func Load(path string) (Config, error) {
	conf := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(err, "read config %s", path)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err = dec.Decode(&conf); err != nil {
		return conf, errors.Wrapf(err, "decode config %s", path)
	}

	conf.Server = conf.Server.WithDefaults()

	if err = conf.Validate(); err != nil {
		return conf, errors.Wrapf(err, "validate config %s", path)
	}
	return conf, nil
}

// FromEnv loads the file named by ECHOD_CONFIG, or returns Default when unset.
func FromEnv() (Config, error) {
	path := os.Getenv(EnvPath)
	if len(path) == 0 {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Log.validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Apply sets the global logx level.
func (l Log) Apply() error {
	if err := l.validate(); err != nil {
		return err
	}
	switch l.Level {
	case "debug":
		logx.SetLevel(logx.LevelDebug)
	case "warn":
		logx.SetLevel(logx.LevelWarn)
	case "error":
		logx.SetLevel(logx.LevelError)
	default:
		logx.SetLevel(logx.LevelInfo)
	}
	return nil
}

func (l Log) validate() error {
	switch l.Level {
	case "", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown level %q, use: debug, info, warn, error", l.Level)
	}
}
