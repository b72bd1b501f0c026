// Package gemini реализует адаптер llm.Provider для Gemini API (google.golang.org/genai).
//
// Поддерживает Function Calling через FunctionDeclarations и настройки
// безопасности по всем категориям вреда.
package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

const providerName = "gemini"

// Роли Gemini API.
const (
	roleUser  = "user"
	roleModel = "model"
)

// contentGenerator - часть genai.Models, которую использует клиент.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client реализует интерфейс llm.Provider для Gemini.
type Client struct {
	models contentGenerator
	opts   llm.GenerateOptions
}

// NewClient создает Gemini клиент на основе конфигурации модели.
//
// Пустой API ключ - *errs.ConfigurationError, запрос не выполняется.
func NewClient(ctx context.Context, modelDef config.ModelDef) (*Client, error) {
	if modelDef.APIKey == "" {
		return nil, &errs.ConfigurationError{Field: "api_key", Reason: "gemini API key is required"}
	}

	cc := &genai.ClientConfig{
		APIKey:  modelDef.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if modelDef.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: modelDef.BaseURL}
	}
	if modelDef.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: modelDef.Timeout}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &errs.ConfigurationError{Field: "gemini client", Reason: err.Error()}
	}

	return newClient(client.Models, optionsFrom(modelDef)), nil
}

func newClient(models contentGenerator, opts llm.GenerateOptions) *Client {
	return &Client{models: models, opts: opts}
}

func optionsFrom(def config.ModelDef) llm.GenerateOptions {
	return llm.NewGenerateOptions(
		llm.WithModel(def.ModelName),
		llm.WithTemperature(def.TemperatureValue()),
		llm.WithMaxTokens(def.MaxTokens),
		llm.WithSafetyThreshold(def.SafetyThreshold),
	)
}

// Generate выполняет один запрос GenerateContent.
//
// Алгоритм:
//  1. История и новое сообщение конвертируются в []*genai.Content
//  2. Системная инструкция, функции и настройки генерации - в GenerateContentConfig
//  3. Первый кандидат ответа нормализуется в llm.ModelTurn
func (c *Client) Generate(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
	startTime := time.Now()

	utils.Debug("LLM request started",
		"provider", providerName,
		"model", c.opts.Model,
		"history_len", len(req.History),
		"functions", req.Tools.Names())

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		if ct := toContent(t); ct != nil {
			contents = append(contents, ct)
		}
	}
	contents = append(contents, textContent(req.Message, roleUser))

	resp, err := c.models.GenerateContent(ctx, c.opts.Model, contents, buildConfig(c.opts.Apply(req.Options...), req))
	if err != nil {
		utils.Error("LLM API request failed",
			"provider", providerName,
			"error", err,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.ModelTurn{}, mapError(err)
	}

	turn := toModelTurn(resp)

	utils.Info("LLM response received",
		"provider", providerName,
		"model", c.opts.Model,
		"finish_reason", turn.RawFinishReason,
		"has_function_call", turn.FunctionCall != nil,
		"content_length", len(turn.Text),
		"duration_ms", time.Since(startTime).Milliseconds())

	return turn, nil
}

func buildConfig(opts llm.GenerateOptions, req llm.Request) *genai.GenerateContentConfig {
	temperature := float32(opts.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(opts.MaxTokens),
		SafetySettings:  safetySettings(opts.SafetyThreshold),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = textContent(req.SystemInstruction, roleUser)
	}
	if tool := convertTools(req.Tools); tool != nil {
		cfg.Tools = []*genai.Tool{tool}
	}
	return cfg
}

func safetySettings(threshold string) []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}
	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, cat := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  cat,
			Threshold: genai.HarmBlockThreshold(threshold),
		})
	}
	return settings
}

// convertTools конвертирует скомпилированный набор функций в genai.Tool.
//
// Для параметров типа array Gemini требует items; элементы объявляются строками.
func convertTools(schema *tools.ToolSchema) *genai.Tool {
	if schema == nil || len(schema.FunctionDeclarations) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(schema.FunctionDeclarations))
	for _, d := range schema.FunctionDeclarations {
		props := make(map[string]*genai.Schema, len(d.Parameters.Properties))
		for _, name := range d.Parameters.OrderedProperties() {
			p := d.Parameters.Properties[name]
			s := &genai.Schema{
				Type:        schemaType(string(p.Type)),
				Description: p.Description,
			}
			if s.Type == genai.TypeArray {
				s.Items = &genai.Schema{Type: genai.TypeString}
			}
			props[name] = s
		}

		required := d.Parameters.Required
		if required == nil {
			required = []string{}
		}

		decls = append(decls, &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}

	return &genai.Tool{FunctionDeclarations: decls}
}

func schemaType(t string) genai.Type {
	switch t {
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	default:
		return genai.TypeString
	}
}

// toContent конвертирует ход истории; пустые ходы пропускаются.
//
// Результаты функций Gemini принимает в ходе с ролью user.
func toContent(t llm.Turn) *genai.Content {
	var parts []*genai.Part

	switch t.Role {
	case llm.RoleUser:
		if t.Text != "" {
			parts = append(parts, &genai.Part{Text: t.Text})
		}
		return content(parts, roleUser)

	case llm.RoleModel:
		if t.Text != "" {
			parts = append(parts, &genai.Part{Text: t.Text})
		}
		if t.FunctionCall != nil {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				Name: t.FunctionCall.Name,
				Args: orEmpty(t.FunctionCall.Args),
			}})
		}
		return content(parts, roleModel)

	case llm.RoleFunction:
		if t.FunctionResponse != nil {
			parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     t.FunctionResponse.Name,
				Response: orEmpty(t.FunctionResponse.Response),
			}})
		}
		return content(parts, roleUser)
	}
	return nil
}

func content(parts []*genai.Part, role string) *genai.Content {
	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

func textContent(text, role string) *genai.Content {
	return &genai.Content{Role: role, Parts: []*genai.Part{{Text: text}}}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// toModelTurn нормализует ответ: текстовые части склеиваются, берётся первый вызов функции.
func toModelTurn(resp *genai.GenerateContentResponse) llm.ModelTurn {
	if resp == nil {
		return llm.ModelTurn{FinishReason: llm.FinishOther}
	}

	if len(resp.Candidates) == 0 {
		// Запрос заблокирован целиком: кандидатов нет, причина в PromptFeedback
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return llm.ModelTurn{
				FinishReason:    llm.FinishSafetyBlocked,
				RawFinishReason: string(resp.PromptFeedback.BlockReason),
			}
		}
		return llm.ModelTurn{FinishReason: llm.FinishOther, RawFinishReason: "NO_CANDIDATES"}
	}

	cand := resp.Candidates[0]
	raw := string(cand.FinishReason)
	turn := llm.ModelTurn{
		FinishReason:    mapFinishReason(raw),
		RawFinishReason: raw,
	}

	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.FunctionCall != nil && turn.FunctionCall == nil {
				turn.FunctionCall = &llm.FunctionCall{
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
		turn.Text = text.String()
	}

	return turn
}

func mapFinishReason(raw string) llm.FinishReason {
	switch raw {
	case "STOP":
		return llm.FinishNormal
	case "MAX_TOKENS":
		return llm.FinishLengthCut
	case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII", "IMAGE_SAFETY":
		return llm.FinishSafetyBlocked
	default:
		return llm.FinishOther
	}
}

// mapError приводит ошибку genai к *errs.BackendUnavailableError.
//
// 4xx (кроме 408 и 429) не повторяемы: тот же запрос будет отвергнут снова.
func mapError(err error) error {
	retryable := true

	// genai возвращает APIError значением, но встречается и указатель
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		retryable = isRetryableStatus(apiErr.Code)
	case errors.As(err, &apiErrPtr):
		retryable = isRetryableStatus(apiErrPtr.Code)
	}

	return &errs.BackendUnavailableError{Provider: providerName, Retryable: retryable, Err: err}
}

func isRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code < 400 || code >= 500
}
