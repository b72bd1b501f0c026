// Package errs определяет таксономию ошибок оркестратора ассистента.
//
// Все ошибки возвращаются вызывающему коду как типизированные значения:
//   - sentinel-ошибки для проверки через errors.Is()
//   - структуры с контекстом для errors.As()
//
// Ядро ничего не логирует за вызывающего и никогда не подменяет
// упавший ход заглушкой.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel-ошибки.

// ErrConfiguration - не задан обязательный параметр (например, API ключ).
//
// Фатальная ошибка старта, запрос к модели не выполняется.
var ErrConfiguration = errors.New("configuration error")

// ErrCapabilityLoad - хранилище возможностей недоступно или вернуло
// несогласованные данные. Частичный набор возможностей не используется.
var ErrCapabilityLoad = errors.New("capability load failed")

// ErrBackendUnavailable - сеть или таймаут при обращении к генеративному бэкенду.
//
// Повтор на усмотрение вызывающего, ядро само не ретраит.
var ErrBackendUnavailable = errors.New("generative backend unavailable")

// ErrSafetyBlocked - бэкенд отказал по соображениям безопасности контента.
// Терминальная ошибка для этого хода.
var ErrSafetyBlocked = errors.New("response blocked by safety filters")

// ErrEmptyResponse - модель завершила ход нормально, но не вернула ни текста,
// ни вызова функции.
var ErrEmptyResponse = errors.New("model returned an empty response")

// ErrUnrecognizedCompletion - неизвестная причина завершения без текста.
var ErrUnrecognizedCompletion = errors.New("unrecognized model completion")

// Ошибки с контекстом.

// ConfigurationError - ошибка конфигурации с именем поля.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is required", e.Field)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is реализует интерфейс для errors.Is().
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// CapabilityLoadError - ошибка загрузки возможностей ассистента.
type CapabilityLoadError struct {
	AssistantID string
	Err         error
}

func (e *CapabilityLoadError) Error() string {
	return fmt.Sprintf("capability load failed for assistant %s: %v", e.AssistantID, e.Err)
}

func (e *CapabilityLoadError) Is(target error) bool {
	return target == ErrCapabilityLoad
}

func (e *CapabilityLoadError) Unwrap() error {
	return e.Err
}

// BackendUnavailableError - ошибка транспорта до генеративного бэкенда.
//
// Retryable=false означает, что бэкенд ответил, но запрос отвергнут
// (например, 400 Bad Request) и повтор с тем же входом бессмыслен.
type BackendUnavailableError struct {
	Provider  string
	Retryable bool
	Err       error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Provider, e.Err)
}

func (e *BackendUnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// SafetyBlockedError - ответ заблокирован фильтрами безопасности.
type SafetyBlockedError struct {
	Reason string
}

func (e *SafetyBlockedError) Error() string {
	return fmt.Sprintf("response blocked by safety filters (reason: %s)", orUnknown(e.Reason))
}

func (e *SafetyBlockedError) Is(target error) bool {
	return target == ErrSafetyBlocked
}

// EmptyResponseError - пустой ответ при нормальном завершении.
type EmptyResponseError struct {
	Reason string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("model returned an empty response (reason: %s)", orUnknown(e.Reason))
}

func (e *EmptyResponseError) Is(target error) bool {
	return target == ErrEmptyResponse
}

// UnrecognizedCompletionError - нераспознанная причина завершения без текста.
// Reason содержит сырое значение от бэкенда для диагностики.
type UnrecognizedCompletionError struct {
	Reason string
}

func (e *UnrecognizedCompletionError) Error() string {
	return fmt.Sprintf("model produced no usable output (reason: %s)", orUnknown(e.Reason))
}

func (e *UnrecognizedCompletionError) Is(target error) bool {
	return target == ErrUnrecognizedCompletion
}

// Вспомогательные функции.

// IsRetryable сообщает, имеет ли смысл повторить запрос с тем же входом.
//
// Повторяемы только транспортные ошибки бэкенда.
func IsRetryable(err error) bool {
	var be *BackendUnavailableError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// IsTerminal сообщает, что ход завершён окончательно и повтор с тем же входом
// не даст другого результата.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSafetyBlocked) ||
		errors.Is(err, ErrEmptyResponse) ||
		errors.Is(err, ErrUnrecognizedCompletion)
}

// WrapBackend оборачивает транспортную ошибку провайдера.
//
// Уже типизированные ошибки таксономии возвращаются как есть.
func WrapBackend(provider string, retryable bool, err error) error {
	if err == nil {
		return nil
	}
	if isTaxonomy(err) {
		return err
	}
	return &BackendUnavailableError{Provider: provider, Retryable: retryable, Err: err}
}

func isTaxonomy(err error) bool {
	for _, target := range []error{
		ErrConfiguration, ErrCapabilityLoad, ErrBackendUnavailable,
		ErrSafetyBlocked, ErrEmptyResponse, ErrUnrecognizedCompletion,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func orUnknown(reason string) string {
	if reason == "" {
		return "unknown"
	}
	return reason
}
