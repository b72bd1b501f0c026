// Package utils предоставляет структурный логгер приложения поверх zap.
//
// API сохраняет форму key/value: utils.Info("msg", "key", value).
// До вызова InitLogger все функции - no-op, поэтому библиотечный код
// и тесты работают без настройки логгера.
package utils

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.SugaredLogger]

func init() {
	logger.Store(zap.NewNop().Sugar())
}

// InitLogger настраивает глобальный логгер.
//
// filename - путь к лог-файлу; пустая строка означает stderr.
// debug включает уровень DEBUG (в нём пишутся детали разбора истории диалога).
func InitLogger(filename string, debug bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil

	if filename != "" {
		cfg.OutputPaths = []string{filename}
		cfg.ErrorOutputPaths = []string{filename}
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	SetLogger(l)
	Info("Logger initialized", "file", filename, "debug", debug)
	return nil
}

// SetLogger подменяет глобальный логгер (nil возвращает no-op).
//
// Используется в тестах вместе с zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Sugar())
}

// Info - информационное сообщение.
func Info(msg string, keyvals ...any) {
	logger.Load().Infow(msg, keyvals...)
}

// Error - сообщение об ошибке.
func Error(msg string, keyvals ...any) {
	logger.Load().Errorw(msg, keyvals...)
}

// Debug - отладочное сообщение.
func Debug(msg string, keyvals ...any) {
	logger.Load().Debugw(msg, keyvals...)
}

// Warn - предупреждение.
func Warn(msg string, keyvals ...any) {
	logger.Load().Warnw(msg, keyvals...)
}

// Close сбрасывает буферы и возвращает no-op логгер.
//
// Вызывается через defer в main().
func Close() {
	l := logger.Swap(zap.NewNop().Sugar())
	// Sync на stderr возвращает EINVAL на части платформ, игнорируем
	_ = l.Sync()
}
