// Загрузка и Рендер - чтение файла и text/template.

package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed assistant_system.yaml
var defaultPromptYAML []byte

// Load загружает и парсит YAML файл промпта
func Load(path string) (*PromptFile, error) {
	// 1. Проверяем наличие
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("prompt file not found: %s", path)
	}

	// 2. Читаем байты
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}

	return parse(data)
}

func parse(data []byte) (*PromptFile, error) {
	var pf PromptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("yaml parse error: %w", err)
	}
	return &pf, nil
}

// Template - скомпилированный шаблон системной инструкции.
//
// Неизменяем после создания, безопасен для конкурентного использования.
type Template struct {
	tmpl   *template.Template
	config PromptConfig
}

// Default возвращает встроенный шаблон системной инструкции.
func Default() (*Template, error) {
	pf, err := parse(defaultPromptYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded prompt: %w", err)
	}
	return NewTemplate(pf)
}

// LoadTemplate загружает шаблон из YAML файла; пустой путь - встроенный шаблон.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return Default()
	}
	pf, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewTemplate(pf)
}

// NewTemplate компилирует первое system-сообщение файла.
func NewTemplate(pf *PromptFile) (*Template, error) {
	var content string
	for _, msg := range pf.Messages {
		if msg.Role == "system" {
			content = msg.Content
			break
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("prompt file has no system message")
	}

	tmpl, err := template.New("system").Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return &Template{tmpl: tmpl, config: pf.Config}, nil
}

// Config возвращает настройки модели из файла промпта.
func (t *Template) Config() PromptConfig {
	return t.config
}

// Build рендерит системную инструкцию и добавляет к ней injection.
func (t *Template) Build(data Data, injection string) (string, error) {
	// Точка после описания добавляется шаблоном
	data.Description = strings.TrimRight(strings.TrimSpace(data.Description), ".")

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execute error: %w", err)
	}
	return buf.String() + injection, nil
}
