package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Neo4j Neo4jConfig
	HTTP  HTTPConfig
	Log   LogConfig
}

type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

type HTTPConfig struct {
	URL     string
	Timeout time.Duration
}

type LogConfig struct {
	Level string
	JSON  bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "neo4j"),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		},
		HTTP: HTTPConfig{
			URL:     getEnv("NEO4J_HTTP_URL", "http://localhost:7474"),
			Timeout: time.Duration(getEnvInt("NEO4J_HTTP_TIMEOUT_SECS", 30)) * time.Second,
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			JSON:  getEnvBool("LOG_JSON", false),
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
