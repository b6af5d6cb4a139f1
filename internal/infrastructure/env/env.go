package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Load reads .env and then .env.<APP_ENV> into the process environment.
// Values from the second file win. Missing files are not an error; the
// returned slice lists the files that were actually loaded.
func Load() []string {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}

	var loaded []string
	if err := godotenv.Load(".env"); err == nil {
		loaded = append(loaded, ".env")
	}

	envFile := fmt.Sprintf(".env.%s", appEnv)
	if err := godotenv.Overload(envFile); err == nil {
		loaded = append(loaded, envFile)
	}

	return loaded
}
