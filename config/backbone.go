package config

import (
	"github.com/spf13/viper"
	"github.com/world-in-progress/mimir/core/logger"
)

type BackboneConfig struct {
	Backbone     string
	Classes      int
	InputChannel int
	Weights      string
	Opt          string
	NormLayer    string
	Activate     string
	PoolingLayer string
}

func LoadBackboneConfig() *BackboneConfig {
	viper.AutomaticEnv() // enable overwrite envs

	// default
	viper.SetDefault("model.classes", 1000)
	viper.SetDefault("train.input_channel", 3)
	viper.SetDefault("model.norm_layer", "BN")
	viper.SetDefault("model.activate", "relu")
	viper.SetDefault("model.pooling_layer", "avg")

	if err := viper.ReadInConfig(); err != nil {
		logger.Error("no config file found: %v", err)
		return nil
	}

	return &BackboneConfig{
		Backbone:     viper.GetString("model.backbone"),
		Classes:      viper.GetInt("model.classes"),
		InputChannel: viper.GetInt("train.input_channel"),
		Weights:      viper.GetString("model.backbone_weights"),
		Opt:          viper.GetString("model.opt"),
		NormLayer:    viper.GetString("model.norm_layer"),
		Activate:     viper.GetString("model.activate"),
		PoolingLayer: viper.GetString("model.pooling_layer"),
	}
}
