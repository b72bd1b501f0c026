// Валидация скомпилированного набора функций.
package tools

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// declarationSchema - JSON Schema, которой должно соответствовать каждое
// объявление функции. Имена функций ограничены правилами Gemini API.
const declarationSchema = `{
  "type": "object",
  "required": ["name", "description", "parameters"],
  "properties": {
    "name": {"type": "string", "pattern": "^[A-Za-z_][A-Za-z0-9_.-]{0,63}$"},
    "description": {"type": "string", "minLength": 1},
    "parameters": {
      "type": "object",
      "required": ["type", "properties", "required"],
      "properties": {
        "type": {"enum": ["object"]},
        "properties": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "required": ["type"],
            "properties": {
              "type": {"enum": ["string", "number", "integer", "boolean", "array"]},
              "description": {"type": "string"}
            }
          }
        },
        "required": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

var loadDeclarationSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(declarationSchema))
})

// Validate проверяет, что каждое объявление соответствует JSON Schema
// и что имена функций уникальны.
//
// nil схема валидна: она означает отсутствие инструментов.
func Validate(s *ToolSchema) error {
	if s == nil {
		return nil
	}

	schema, err := loadDeclarationSchema()
	if err != nil {
		return fmt.Errorf("failed to load declaration schema: %w", err)
	}

	seen := make(map[string]struct{}, len(s.FunctionDeclarations))
	for i, d := range s.FunctionDeclarations {
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("function '%s' is declared more than once", d.Name)
		}
		seen[d.Name] = struct{}{}

		doc := map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  map[string]any(d.JSONSchema()),
		}

		result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
		if err != nil {
			return fmt.Errorf("function declaration %d: %w", i, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, re := range result.Errors() {
				msgs = append(msgs, re.String())
			}
			return fmt.Errorf("function '%s' is invalid: %s", d.Name, strings.Join(msgs, "; "))
		}
	}

	return nil
}
