package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
	} `yaml:"redis"`
	AI struct {
		GeminiEndpoint string `yaml:"gemini_endpoint"`
		GeminiKey      string `yaml:"gemini_key"`
		GeminiModel    string `yaml:"gemini_model"`
		ImageAPI       string `yaml:"image_api"`
	} `yaml:"ai"`
	Pipeline struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"pipeline"`
	MinIO struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
	} `yaml:"minio"`
}

var AppConfig *Config

func InitConfig() {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}
	defer f.Close()
	decoder := yaml.NewDecoder(f)
	AppConfig = &Config{}
	if err := decoder.Decode(AppConfig); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}
	if AppConfig.AI.GeminiModel == "" {
		AppConfig.AI.GeminiModel = "gemini-pro-latest"
	}
	if AppConfig.Pipeline.Concurrency == 0 {
		AppConfig.Pipeline.Concurrency = 5
	}
}
