package capability

import (
	"context"
	"encoding/json"
	"fmt"
)

// Source - хранилище определений возможностей (только чтение).
//
// Реализации: pkg/store (SQLite) и pkg/s3storage (JSON каталог в бакете).
type Source interface {
	// Subscriptions возвращает все подписки ассистента, включая неактивные.
	// Фильтрацию выполняет Resolver.
	Subscriptions(ctx context.Context, assistantID string) ([]Subscription, error)
}

// Subscription - подписка ассистента на задачу.
type Subscription struct {
	ID     string      `json:"id"`
	Active bool        `json:"active"`
	Task   *TaskRecord `json:"task,omitempty"`
}

// TaskRecord - сырая запись задачи из хранилища.
type TaskRecord struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description,omitempty"`
	Instruction  string              `json:"instruction,omitempty"`
	Active       bool                `json:"active"`
	Function     *FunctionRecord     `json:"function,omitempty"`
	CustomFields []CustomFieldRecord `json:"customFields,omitempty"`
}

// FunctionRecord - функция, к которой привязана задача.
type FunctionRecord struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Parameters  []ParameterRecord `json:"parameters,omitempty"`
}

// ParameterRecord - параметр функции с нетипизированным типом данных.
type ParameterRecord struct {
	Name        string `json:"name"`
	DataType    string `json:"dataType"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// CustomFieldRecord - пользовательское поле CRM, которое задача требует собрать.
//
// FieldName - ключ поля; Label - отображаемое имя. Оба могут быть пустыми.
// Required задаётся привязкой поля к задаче, а не самим полем.
type CustomFieldRecord struct {
	ID          string `json:"id"`
	FieldName   string `json:"fieldName,omitempty"`
	Label       string `json:"label"`
	DataType    string `json:"dataType"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Catalog - переносимый снимок подписок ассистента (JSON).
//
// Формат общий для каталога в S3 и для команды seed.
type Catalog struct {
	AssistantID   string         `json:"assistantId"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// DecodeCatalog разбирает JSON каталог.
func DecodeCatalog(data []byte) (Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("failed to decode capability catalog: %w", err)
	}
	for i, sub := range c.Subscriptions {
		if sub.ID == "" {
			return Catalog{}, fmt.Errorf("subscription #%d has no id", i)
		}
	}
	return c, nil
}
