// Package capability превращает подписки ассистента в набор возможностей
// (TaskCapability), которые можно предложить модели как функции.
package capability

import (
	"strings"
)

// SemanticType - закрытый набор типов параметров функции.
type SemanticType string

const (
	TypeString  SemanticType = "string"
	TypeNumber  SemanticType = "number"
	TypeInteger SemanticType = "integer"
	TypeBoolean SemanticType = "boolean"
	TypeArray   SemanticType = "array"
)

// ParseSemanticType разбирает сырое значение типа из хранилища.
//
// Неизвестные и пустые значения становятся TypeString, ok=false сообщает
// вызывающему, что применён тип по умолчанию (его нужно залогировать).
func ParseSemanticType(raw string) (SemanticType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "string":
		return TypeString, true
	case "number":
		return TypeNumber, true
	case "integer":
		return TypeInteger, true
	case "boolean":
		return TypeBoolean, true
	case "array":
		return TypeArray, true

	// Типы полей CRM
	case "texto", "email", "telefono", "direccion", "fecha", "fechahora", "seleccion_unica":
		return TypeString, true
	case "numero", "decimal", "float":
		return TypeNumber, true
	case "entero":
		return TypeInteger, true
	case "booleano":
		return TypeBoolean, true
	case "seleccion_multiple":
		return TypeArray, true
	default:
		return TypeString, false
	}
}

// ParameterSpec - параметр функции или обязательное пользовательское поле CRM.
type ParameterSpec struct {
	Name        string       `json:"name"`
	Type        SemanticType `json:"type"`
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required"`
}

// ToolFunction - вызываемая поверхность возможности.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// TaskCapability - именованное действие ассистента, опционально привязанное к функции.
type TaskCapability struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// FollowUpInstruction добавляется в системную инструкцию сразу после
	// выполнения функции этой возможности.
	FollowUpInstruction string `json:"followUpInstruction,omitempty"`

	ToolFunction         *ToolFunction   `json:"toolFunction,omitempty"`
	RequiredCustomFields []ParameterSpec `json:"requiredCustomFields,omitempty"`
}

// FunctionName возвращает имя привязанной функции или "".
func (c TaskCapability) FunctionName() string {
	if c.ToolFunction == nil {
		return ""
	}
	return c.ToolFunction.Name
}

// MergeCustomFields добавляет пользовательские поля к параметрам функции.
//
// Поля с пустым именем и поля, чьё имя уже есть среди параметров, пропускаются:
// параметр функции всегда имеет приоритет. Операция идемпотентна.
func MergeCustomFields(params []ParameterSpec, fields []ParameterSpec) []ParameterSpec {
	seen := make(map[string]struct{}, len(params)+len(fields))
	merged := make([]ParameterSpec, 0, len(params)+len(fields))

	for _, p := range params {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		merged = append(merged, p)
	}
	for _, f := range fields {
		if f.Name == "" {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		merged = append(merged, f)
	}
	return merged
}
