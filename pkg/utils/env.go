package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads .env files for the given environment. The base .env is loaded
// first, then .env.<env> overrides it when present.
func LoadEnv(env string) error {
	if env != "" {
		if err := godotenv.Overload(fmt.Sprintf(".env.%s", env)); err == nil {
			_ = godotenv.Load(".env")
			return nil
		}
	}
	return godotenv.Load(".env")
}

// GetEnv returns the raw environment variable value.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv returns the environment variable as int64, 0 when unset or invalid.
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv returns the environment variable as bool, false when unset.
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

// GetFloatEnv returns the environment variable as float64, 0 when unset.
func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(os.Getenv(key))
}
