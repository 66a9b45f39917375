// Package logger создаёт zap-логгер в зависимости от окружения.
package logger

import "go.uber.org/zap"

// New возвращает production-логгер для окружения "production" и development-логгер для остальных.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
