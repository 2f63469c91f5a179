package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// 同时在线连接的上限
	MaxClients int `mapstructure:"max_clients"`

	// 词库来源："file" 或 "postgres"
	WordSource  string `mapstructure:"word_source"`
	WordsFile   string `mapstructure:"words_file"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

var cfg *AppConfig

func GetConfig() *AppConfig {
	if cfg == nil {
		cfg = InitConfig()
	}

	return cfg
}

func InitConfig() *AppConfig {
	v := viper.New()

	v.SetConfigFile("app_config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("max_clients", 5)
	v.SetDefault("word_source", "file")
	v.SetDefault("words_file", "words.txt")

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("加载配置失败: %w", err))
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("解析配置失败: %w", err))
	}

	return &config
}
