// Package openai реализует адаптер llm.Provider для OpenAI-совместимых API.
//
// Используется для OpenAI, Zai (GLM) и DeepSeek: отличаются только BaseURL и модель.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// chatCompleter - часть *openai.Client, которую использует адаптер.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client реализует интерфейс llm.Provider для OpenAI-совместимых API.
type Client struct {
	api      chatCompleter
	provider string
	opts     llm.GenerateOptions
}

// NewClient создает OpenAI клиент на основе конфигурации модели.
//
// Поддержка custom BaseURL для non-OpenAI провайдеров (Zai, DeepSeek и т.д.).
func NewClient(modelDef config.ModelDef) (*Client, error) {
	if modelDef.APIKey == "" {
		return nil, &errs.ConfigurationError{Field: "api_key", Reason: modelDef.Provider + " API key is required"}
	}

	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}
	if modelDef.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: modelDef.Timeout}
	}

	provider := modelDef.Provider
	if provider == "" {
		provider = "openai"
	}

	return newClient(openai.NewClientWithConfig(cfg), provider, llm.NewGenerateOptions(
		llm.WithModel(modelDef.ModelName),
		llm.WithTemperature(modelDef.TemperatureValue()),
		llm.WithMaxTokens(modelDef.MaxTokens),
	)), nil
}

func newClient(api chatCompleter, provider string, opts llm.GenerateOptions) *Client {
	return &Client{api: api, provider: provider, opts: opts}
}

// Generate выполняет один запрос Chat Completions.
//
// Алгоритм:
//  1. Системная инструкция, история и сообщение конвертируются в формат SDK
//  2. Если есть функции - добавляются tools с ToolChoice "auto"
//  3. Первый choice нормализуется в llm.ModelTurn
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
	startTime := time.Now()

	utils.Debug("LLM request started",
		"provider", c.provider,
		"model", c.opts.Model,
		"history_len", len(req.History),
		"functions", req.Tools.Names())

	opts := c.opts.Apply(req.Options...)
	chatReq := openai.ChatCompletionRequest{
		Model:       opts.Model,
		Messages:    buildMessages(req),
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}
	if defs := convertTools(req.Tools); len(defs) > 0 {
		chatReq.Tools = defs
		// LLM сама решает когда вызывать функции
		chatReq.ToolChoice = "auto"
	}

	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		utils.Error("LLM API request failed",
			"provider", c.provider,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.ModelTurn{}, c.mapError(err)
	}

	turn := toModelTurn(resp)

	utils.Info("LLM response received",
		"provider", c.provider,
		"model", c.opts.Model,
		"finish_reason", turn.RawFinishReason,
		"has_function_call", turn.FunctionCall != nil,
		"content_length", len(turn.Text),
		"duration_ms", time.Since(startTime).Milliseconds())

	return turn, nil
}

// buildMessages конвертирует запрос в сообщения Chat Completions.
//
// ID вызовов в истории не хранятся, поэтому синтезируются: вызов функции и
// следующий за ним результат получают один и тот же "call_<n>".
func buildMessages(req llm.Request) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}

	callID := ""
	for i, t := range req.History {
		switch t.Role {
		case llm.RoleUser:
			if t.Text == "" {
				continue
			}
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Text})

		case llm.RoleModel:
			if t.Text == "" && t.FunctionCall == nil {
				continue
			}
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Text}
			if t.FunctionCall != nil {
				callID = fmt.Sprintf("call_%d", i)
				msg.ToolCalls = []openai.ToolCall{{
					ID:   callID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      t.FunctionCall.Name,
						Arguments: encodeArgs(t.FunctionCall.Args),
					},
				}}
			}
			msgs = append(msgs, msg)

		case llm.RoleFunction:
			if t.FunctionResponse == nil {
				continue
			}
			// Результат без предшествующего вызова получает собственный ID
			if callID == "" {
				callID = fmt.Sprintf("call_%d", i)
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Name:       t.FunctionResponse.Name,
				ToolCallID: callID,
				Content:    encodeArgs(t.FunctionResponse.Response),
			})
			callID = ""
		}
	}

	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})
}

func encodeArgs(m map[string]any) string {
	if m == nil {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// convertTools конвертирует скомпилированный набор функций в формат OpenAI Function Calling.
func convertTools(schema *tools.ToolSchema) []openai.Tool {
	if schema == nil {
		return nil
	}

	result := make([]openai.Tool, 0, len(schema.FunctionDeclarations))
	for _, decl := range schema.FunctionDeclarations {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  decl.JSONSchema(),
			},
		})
	}
	return result
}

// toModelTurn нормализует ответ: берётся первый choice и первый вызов функции.
func toModelTurn(resp openai.ChatCompletionResponse) llm.ModelTurn {
	if len(resp.Choices) == 0 {
		return llm.ModelTurn{FinishReason: llm.FinishOther, RawFinishReason: "NO_CHOICES"}
	}

	choice := resp.Choices[0]
	raw := string(choice.FinishReason)
	turn := llm.ModelTurn{
		FinishReason:    mapFinishReason(raw),
		RawFinishReason: raw,
		Text:            choice.Message.Content,
	}

	if len(choice.Message.ToolCalls) > 0 {
		fc := choice.Message.ToolCalls[0].Function
		turn.FunctionCall = &llm.FunctionCall{Name: fc.Name, Args: decodeArgs(fc.Name, fc.Arguments)}
	} else if choice.Message.FunctionCall != nil {
		fc := choice.Message.FunctionCall
		turn.FunctionCall = &llm.FunctionCall{Name: fc.Name, Args: decodeArgs(fc.Name, fc.Arguments)}
	}

	return turn
}

// decodeArgs разбирает JSON аргументов; невалидный JSON даёт пустой объект.
func decodeArgs(name, raw string) map[string]any {
	args := map[string]any{}
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		utils.Warn("Function arguments are not a JSON object",
			"function", name,
			"error", err)
		return map[string]any{}
	}
	return args
}

func mapFinishReason(raw string) llm.FinishReason {
	switch openai.FinishReason(raw) {
	case openai.FinishReasonStop, openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return llm.FinishNormal
	case openai.FinishReasonLength:
		return llm.FinishLengthCut
	case openai.FinishReasonContentFilter:
		return llm.FinishSafetyBlocked
	default:
		return llm.FinishOther
	}
}

// mapError приводит ошибку SDK к *errs.BackendUnavailableError.
func (c *Client) mapError(err error) error {
	retryable := true

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		retryable = isRetryableStatus(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		retryable = isRetryableStatus(reqErr.HTTPStatusCode)
	}

	return &errs.BackendUnavailableError{Provider: c.provider, Retryable: retryable, Err: err}
}

// isRetryableStatus: 4xx (кроме 408 и 429) не повторяемы.
func isRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code < 400 || code >= 500
}
