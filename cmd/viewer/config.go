package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StoreDriver    string `envconfig:"STORE_DRIVER" default:"sqlite"`
	SQLiteFilepath string `envconfig:"SQLITE_FILEPATH" default:"dump.db"`
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"data/badger"`
	BlugeFilepath  string `envconfig:"BLUGE_FILEPATH"`
	// VIEWER_COLOURS enables colorized headers
	Colours bool `envconfig:"VIEWER_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
