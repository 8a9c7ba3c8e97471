// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

// Package config loads cluster settings from a config file and the
// environment. File values come from bamboo.yaml; environment variables
// carry the BAMBOO_ prefix and override the file, so BAMBOO_ADDRESSES
// overrides the addresses key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/juvoinc/bamboo/pkg/contracts"
)

// EnvPrefix is the prefix of environment variables the loader reads.
const EnvPrefix = "BAMBOO"

var settingKeys = []string{
	"addresses", "username", "password", "api_key", "user_agent",
	"insecure_skip_verify", "timeout", "max_retries",
	"scroll_keep_alive", "scroll_batch_size",
}

// Load reads cluster settings from the given paths and the environment.
// Missing files are fine; unset keys fall back to defaults.
func Load(paths ...string) (contracts.ClusterConfig, error) {
	v := viper.New()
	v.SetConfigName("bamboo")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range settingKeys {
		// AutomaticEnv only resolves keys viper already knows about
		v.SetDefault(key, nil)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return contracts.ClusterConfig{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := contracts.ClusterConfig{
		Addresses:          addressList(v),
		Username:           v.GetString("username"),
		Password:           v.GetString("password"),
		APIKey:             v.GetString("api_key"),
		UserAgent:          v.GetString("user_agent"),
		InsecureSkipVerify: v.GetBool("insecure_skip_verify"),
		MaxRetries:         v.GetInt("max_retries"),
		ScrollBatchSize:    v.GetInt("scroll_batch_size"),
	}

	timeout, err := durationSetting(v, "timeout")
	if err != nil {
		return contracts.ClusterConfig{}, err
	}
	config.Timeout = timeout

	keepAlive, err := durationSetting(v, "scroll_keep_alive")
	if err != nil {
		return contracts.ClusterConfig{}, err
	}
	config.ScrollKeepAlive = keepAlive

	return config.WithDefaults(), nil
}

// addressList resolves the node addresses. A file carries them as a list;
// the environment carries one whitespace-separated string.
func addressList(v *viper.Viper) []string {
	addresses := v.GetStringSlice("addresses")
	if len(addresses) == 1 && strings.ContainsAny(addresses[0], " \t") {
		return strings.Fields(addresses[0])
	}
	return addresses
}

func durationSetting(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return parsed, nil
}
