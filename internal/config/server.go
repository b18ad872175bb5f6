package config

import "os"

// ServerConfig configures the development registry server.
type ServerConfig struct {
	Port        string
	StoragePath string
}

// LoadServer reads server configuration from the environment.
func LoadServer() ServerConfig {
	return ServerConfig{
		Port:        getEnv("PORT", "8080"),
		StoragePath: getEnv("STORAGE_PATH", "./storage"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
