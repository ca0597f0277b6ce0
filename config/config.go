package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Mongo      MongoConfig      `yaml:"mongo"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	ParcelDesk ParcelDeskConfig `yaml:"parceldesk"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"name"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	TrackingChangedTopicName string `yaml:"tracking_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AuthConfig struct {
	// Секрет для HS256. В проде приходит из окружения, не из файла.
	JWTSecret         string `yaml:"jwt_secret"`
	TokenTTLSeconds   int    `yaml:"token_ttl_seconds"`
	SeedAdminLogin    string `yaml:"seed_admin_login"`
	SeedAdminPassword string `yaml:"seed_admin_password"`
}

type ParcelDeskConfig struct {
	HTTPAddr                string `yaml:"http_addr"`
	KafkaConsumerGroup      string `yaml:"kafka_consumer_group"`
	CurrentStatusTTLSeconds int    `yaml:"current_status_ttl_seconds"`

	PublicRateLimitPerMinute int `yaml:"public_rate_limit_per_minute"`
	LoginRateLimitPerMinute  int `yaml:"login_rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	// секреты можно переопределить окружением, чтобы не держать их в yaml
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Mongo.URI = v
	}

	return &config, nil
}
