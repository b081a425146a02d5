package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ServeConfig holds settings for the HTTP service.
type ServeConfig struct {
	Listen   string
	State    string
	Out      string
	PGDSN    string
	LogLevel string
}

// ExecConfig holds settings for one-shot swap/quote runs.
type ExecConfig struct {
	State            string
	Out              string
	Pool             string
	Payer            string
	InputMint        string
	AmountIn         string
	MinimumAmountOut string
	LogLevel         string
}

// LoadServe merges config file, environment variables, and flags.
func LoadServe(cfgFile string, flags *pflag.FlagSet) (ServeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"listen":    ":8080",
		"out":       "./data/swaps.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return ServeConfig{}, err
	}

	return ServeConfig{
		Listen:   v.GetString("listen"),
		State:    v.GetString("state"),
		Out:      v.GetString("out"),
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// LoadExec merges config file, environment variables, and flags.
func LoadExec(cfgFile string, flags *pflag.FlagSet) (ExecConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/swaps.jsonl",
		"minimum-amount-out": "0",
		"log-level":          "info",
	})
	if err != nil {
		return ExecConfig{}, err
	}

	return ExecConfig{
		State:            v.GetString("state"),
		Out:              v.GetString("out"),
		Pool:             v.GetString("pool"),
		Payer:            v.GetString("payer"),
		InputMint:        v.GetString("input-mint"),
		AmountIn:         v.GetString("amount-in"),
		MinimumAmountOut: v.GetString("minimum-amount-out"),
		LogLevel:         v.GetString("log-level"),
	}, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}
