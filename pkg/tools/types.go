// Структуры набора функций, предлагаемого модели (Function Calling).

package tools

import (
	"sort"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
)

// JSONSchema представляет JSON Schema для параметров функции.
//
// Формат соответствует JSON Schema для Function Calling API.
type JSONSchema map[string]any

// ToolSchema - скомпилированный набор объявлений функций.
//
// nil означает "инструменты не предлагаются". После Compile не изменяется
// и безопасен для конкурентного чтения.
type ToolSchema struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration описывает одну функцию для модели.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema - объект аргументов функции.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`

	// Required всегда пустой массив: обязательность параметров передаётся
	// текстом системной инструкции, а не схемой.
	Required []string `json:"required"`

	// Order - порядок объявления свойств (map его не хранит).
	Order []string `json:"-"`
}

// Property - один параметр функции.
type Property struct {
	Type        capability.SemanticType `json:"type"`
	Description string                  `json:"description,omitempty"`
}

// JSONSchema возвращает параметры объявления как JSON Schema объект.
//
// Используется OpenAI-совместимыми провайдерами и валидацией.
func (d FunctionDeclaration) JSONSchema() JSONSchema {
	props := make(map[string]any, len(d.Parameters.Properties))
	for name, p := range d.Parameters.Properties {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[name] = prop
	}

	required := d.Parameters.Required
	if required == nil {
		required = []string{}
	}

	return JSONSchema{
		"type":       d.Parameters.Type,
		"properties": props,
		"required":   required,
	}
}

// OrderedProperties возвращает имена свойств в порядке объявления.
func (p ParameterSchema) OrderedProperties() []string {
	if len(p.Order) == len(p.Properties) {
		return p.Order
	}
	// Схема собрана вручную без Order
	names := make([]string, 0, len(p.Properties))
	for name := range p.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
