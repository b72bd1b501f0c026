package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

//go:embed demo_catalog.json
var demoCatalog []byte

// DemoCatalog возвращает встроенный каталог demo ассистента клиники.
func DemoCatalog() (capability.Catalog, error) {
	return capability.DecodeCatalog(demoCatalog)
}

// Import записывает каталог в базу одной транзакцией.
//
// Подписки ассистента заменяются целиком; задачи и поля CRM перезаписываются
// по ID, поэтому повторный импорт того же каталога ничего не меняет.
func (s *Store) Import(ctx context.Context, catalog capability.Catalog) error {
	if catalog.AssistantID == "" {
		return fmt.Errorf("catalog has no assistant id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assistant_task_subscriptions WHERE assistant_id = ?`, catalog.AssistantID); err != nil {
		return fmt.Errorf("failed to clear subscriptions: %w", err)
	}

	for _, sub := range catalog.Subscriptions {
		if sub.Task == nil {
			continue
		}
		if err := saveTask(ctx, tx, *sub.Task); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO assistant_task_subscriptions (id, assistant_id, task_id, active)
			VALUES (?, ?, ?, ?)`, sub.ID, catalog.AssistantID, sub.Task.ID, sub.Active); err != nil {
			return fmt.Errorf("failed to save subscription %s: %w", sub.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}

	utils.Info("Capability catalog imported",
		"assistant_id", catalog.AssistantID,
		"subscriptions", len(catalog.Subscriptions))
	return nil
}

func saveTask(ctx context.Context, tx *sql.Tx, task capability.TaskRecord) error {
	if task.ID == "" {
		return fmt.Errorf("task %q has no id", task.Name)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tasks (id, name, description, instruction, active) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			instruction = excluded.instruction,
			active = excluded.active`,
		task.ID, task.Name, task.Description, task.Instruction, task.Active); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}

	// Функцию и привязки полей пересоздаём
	if _, err := tx.ExecContext(ctx, `DELETE FROM function_parameters WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to clear parameters of task %s: %w", task.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_functions WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to clear function of task %s: %w", task.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_custom_fields WHERE task_id = ?`, task.ID); err != nil {
		return fmt.Errorf("failed to clear custom fields of task %s: %w", task.ID, err)
	}

	if fn := task.Function; fn != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_functions (task_id, name, description) VALUES (?, ?, ?)`,
			task.ID, fn.Name, fn.Description); err != nil {
			return fmt.Errorf("failed to save function of task %s: %w", task.ID, err)
		}
		for i, p := range fn.Parameters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO function_parameters (task_id, position, name, data_type, description, required)
				VALUES (?, ?, ?, ?, ?, ?)`,
				task.ID, i, p.Name, p.DataType, p.Description, p.Required); err != nil {
				return fmt.Errorf("failed to save parameter %s of task %s: %w", p.Name, task.ID, err)
			}
		}
	}

	for i, f := range task.CustomFields {
		if f.ID == "" {
			return fmt.Errorf("custom field %q of task %s has no id", f.Label, task.ID)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO crm_custom_fields (id, field_name, label, data_type, description)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				field_name = excluded.field_name,
				label = excluded.label,
				data_type = excluded.data_type,
				description = excluded.description`,
			f.ID, f.FieldName, f.Label, f.DataType, f.Description); err != nil {
			return fmt.Errorf("failed to save custom field %s: %w", f.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_custom_fields (task_id, field_id, position, required) VALUES (?, ?, ?, ?)`,
			task.ID, f.ID, i, f.Required); err != nil {
			return fmt.Errorf("failed to link custom field %s to task %s: %w", f.ID, task.ID, err)
		}
	}

	return nil
}
