package config

import (
	"log"

	"github.com/spf13/viper"
)

type ZooConfig struct {
	Catalog   string // path of the local YAML catalog, empty to use the repository only
	Dir       string // directory holding downloaded checkpoint files
	CacheSize int    // number of catalog entries kept active in the runtime cache
}

func LoadZooConfig() ZooConfig {
	viper.AutomaticEnv() // enable overwrite envs

	// default
	viper.SetDefault("zoo.dir", "pretrained")
	viper.SetDefault("zoo.cache_size", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("no config file found, use default configuration: %v", err)
	}

	return ZooConfig{
		Catalog:   viper.GetString("zoo.catalog"),
		Dir:       viper.GetString("zoo.dir"),
		CacheSize: viper.GetInt("zoo.cache_size"),
	}
}
