// Структуры данных - описывает формат YAML файла промпта.
package prompt

// PromptFile описывает структуру YAML-файла с промптом
type PromptFile struct {
	Config   PromptConfig `yaml:"config"`
	Messages []Message    `yaml:"messages"`
}

// PromptConfig - настройки модели для конкретного промпта.
// Ненулевые значения заменяют настройки модели из config.yaml,
// нулевые означают "взять из config.yaml".
type PromptConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Message - одно сообщение промпта
type Message struct {
	Role    string `yaml:"role"`    // system
	Content string `yaml:"content"` // Шаблон с {{.Variables}}
}

// Data - переменные шаблона системной инструкции.
type Data struct {
	AssistantName string
	BusinessName  string
	// Description необязательно.
	Description string
}
