// Package assistant реализует один ход ассистента с вызовом функций.
//
// Orchestrator связывает части конвейера:
//   - системная инструкция из prompt.Template + дополнение из dialogue
//   - набор функций из tools.Compile
//   - ровно один запрос к llm.Provider
//   - разбор хода модели через response.Disambiguator
//
// Orchestrator не хранит состояния между вызовами, ничего не пишет в хранилища
// и не повторяет запросы: повтор - решение вызывающего.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/prompt"
	"github.com/israelwong/promediamx-sub009/pkg/response"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// DefaultTimeout - таймаут одного запроса к бэкенду.
const DefaultTimeout = 60 * time.Second

// ErrInvalidRequest - запрос не прошёл проверку до обращения к бэкенду.
var ErrInvalidRequest = errors.New("invalid assistant request")

// Context - кто отвечает пользователю.
type Context struct {
	AssistantName string `json:"assistantName"`
	BusinessName  string `json:"businessName"`
	Description   string `json:"description,omitempty"`
}

// Request - вход одного хода.
type Request struct {
	Assistant    Context
	Capabilities []capability.TaskCapability
	// History передаётся бэкенду как есть и не изменяется.
	History []llm.Turn
	Message string

	// State - явное состояние диалога. nil - состояние выводится из History.
	State *dialogue.State
}

// Config конфигурация для создания Orchestrator.
type Config struct {
	// Provider - генеративный бэкенд (обязательный)
	Provider llm.Provider

	// Template - шаблон системной инструкции (по умолчанию встроенный)
	Template *prompt.Template

	// Disambiguator - разбор хода модели (по умолчанию response.New())
	Disambiguator *response.Disambiguator

	// Timeout - дедлайн запроса к бэкенду (по умолчанию DefaultTimeout)
	Timeout time.Duration
}

// Orchestrator выполняет один ход ассистента.
//
// Неизменяем после New, безопасен для конкурентного использования.
type Orchestrator struct {
	provider      llm.Provider
	template      *prompt.Template
	disambiguator *response.Disambiguator
	timeout       time.Duration
	// options - переопределения генерации из файла промпта
	options []llm.GenerateOption
}

// New создаёт Orchestrator с заданной конфигурацией.
//
// Без провайдера возвращает *errs.ConfigurationError.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, &errs.ConfigurationError{Field: "provider"}
	}

	if cfg.Template == nil {
		tmpl, err := prompt.Default()
		if err != nil {
			return nil, &errs.ConfigurationError{Field: "template", Reason: err.Error()}
		}
		cfg.Template = tmpl
	}
	if cfg.Disambiguator == nil {
		cfg.Disambiguator = response.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Orchestrator{
		provider:      cfg.Provider,
		template:      cfg.Template,
		disambiguator: cfg.Disambiguator,
		timeout:       cfg.Timeout,
		options:       promptOptions(cfg.Template.Config()),
	}, nil
}

// promptOptions переводит ненулевые настройки файла промпта в опции запроса.
func promptOptions(pc prompt.PromptConfig) []llm.GenerateOption {
	var opts []llm.GenerateOption
	if pc.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(pc.Temperature))
	}
	if pc.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(pc.MaxTokens))
	}
	return opts
}

// Generate выполняет ход: собирает инструкцию и функции, делает один запрос
// к бэкенду и разбирает ответ.
//
// Ошибки:
//   - транспорт и таймаут: *errs.BackendUnavailableError
//   - отказ по безопасности, пустой или нераспознанный ход: см. response.Disambiguate
func (o *Orchestrator) Generate(ctx context.Context, req Request) (response.AssistantResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return response.AssistantResponse{}, fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}

	injection, injected := dialogue.Resolve(req.State, req.History, req.Capabilities)

	system, err := o.template.Build(prompt.Data{
		AssistantName: req.Assistant.AssistantName,
		BusinessName:  req.Assistant.BusinessName,
		Description:   req.Assistant.Description,
	}, injection)
	if err != nil {
		return response.AssistantResponse{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	schema := tools.Compile(req.Capabilities)

	utils.Debug("Assistant turn started",
		"assistant", req.Assistant.AssistantName,
		"history_len", len(req.History),
		"functions", schema.Names(),
		"injected", injected)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	turn, err := o.provider.Generate(ctx, llm.Request{
		SystemInstruction: system,
		Tools:             schema,
		History:           req.History,
		Message:           req.Message,
		Options:           o.options,
	})
	if err != nil {
		return response.AssistantResponse{}, backendError(ctx, err)
	}

	return o.disambiguator.Disambiguate(turn)
}

// backendError приводит ошибку провайдера к таксономии.
func backendError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(err, errs.ErrBackendUnavailable) {
			return err
		}
		return &errs.BackendUnavailableError{Provider: "generative backend", Retryable: true, Err: err}
	}
	return errs.WrapBackend("generative backend", true, err)
}
