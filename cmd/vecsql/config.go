// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configName = "vecsql"
	configType = "yaml"
	envPrefix  = "VECSQL"
)

// Config holds the CLI settings, read from flags, VECSQL_* environment
// variables and vecsql.yaml, in that order of precedence.
type Config struct {
	Engine string `mapstructure:"engine"`
	DSN    string `mapstructure:"dsn"`
	Format string `mapstructure:"format"`
	// Options is a connection option string, see cursor.ParseOptions.
	Options string `mapstructure:"options"`
	Verbose bool   `mapstructure:"verbose"`
}

func newFlagSet(out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("vecsql", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringP("engine", "e", "sqlite", "engine to use: "+strings.Join(engineNames(), ", "))
	fs.StringP("dsn", "d", "", "database path or URI, empty for an in-memory database")
	fs.StringP("format", "f", "table", "output format: table, yaml")
	fs.StringP("options", "o", "", "connection options, e.g. OPEN_READONLY;NUMERIC_PRECISION=double")
	fs.BoolP("verbose", "v", false, "log debug output to stderr")
	fs.String("config", "", "config file, defaults to ./vecsql.yaml")
	return fs
}

// loadConfig parses args and resolves the configuration. The remaining
// positional arguments are returned as the statements to run.
func loadConfig(args []string, out io.Writer) (*Config, []string, error) {
	fs := newFlagSet(out)
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, nil, fmt.Errorf("bind flags: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	switch cfg.Format {
	case "table", "yaml":
	default:
		return nil, nil, fmt.Errorf("unknown output format %q", cfg.Format)
	}
	return cfg, fs.Args(), nil
}
