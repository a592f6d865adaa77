package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv загружает переменные из .env файла, не перезаписывая уже заданные
func LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoadEnvOptional загружает .env, если файл существует
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	return LoadEnv(path)
}
