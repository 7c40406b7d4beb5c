package utils

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/kelsos/fadr-stems/internal/logger"
)

// LoadEnvironment loads FADR_API_KEY and friends from .env files.
// The working directory wins over the executable's directory because godotenv
// never overrides a variable that is already set.
func LoadEnvironment() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file in current directory: %v", err)
	} else {
		logger.Debug("Loaded .env file from current directory")
	}

	execPath, err := os.Executable()
	if err != nil {
		logger.Debug("Could not determine executable path: %v", err)
		return
	}

	envPath := filepath.Join(filepath.Dir(execPath), ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Debug("No .env file next to executable (%s): %v", envPath, err)
		return
	}
	logger.Debug("Loaded .env file from app directory: %s", envPath)
}
