// Package store хранит определения возможностей ассистентов в SQLite.
//
// Store реализует capability.Source: задачи, их функции с параметрами,
// пользовательские поля CRM и подписки ассистентов на задачи.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// MemoryPath - база в памяти (тесты, demo).
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	instruction TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS task_functions (
	task_id TEXT PRIMARY KEY REFERENCES tasks(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS function_parameters (
	task_id TEXT NOT NULL REFERENCES task_functions(task_id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	data_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	required INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, position)
);

CREATE TABLE IF NOT EXISTS crm_custom_fields (
	id TEXT PRIMARY KEY,
	field_name TEXT NOT NULL DEFAULT '',
	label TEXT NOT NULL DEFAULT '',
	data_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

-- required относится к привязке: одно поле CRM может быть обязательным
-- для одной задачи и необязательным для другой.
CREATE TABLE IF NOT EXISTS task_custom_fields (
	task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	field_id TEXT NOT NULL REFERENCES crm_custom_fields(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	required INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, field_id)
);

CREATE TABLE IF NOT EXISTS assistant_task_subscriptions (
	id TEXT PRIMARY KEY,
	assistant_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_subscriptions_assistant ON assistant_task_subscriptions(assistant_id);
`

// Store - SQLite хранилище возможностей.
type Store struct {
	db   *sql.DB
	path string
}

var _ capability.Source = (*Store)(nil)

// Open открывает (или создаёт) базу и применяет схему.
func Open(path string) (*Store, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Каждое соединение к :memory: - отдельная база
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	utils.Debug("Capability store opened", "path", path)
	return s, nil
}

// Close закрывает соединение с базой.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path возвращает путь к файлу базы.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	_, err := s.db.Exec(schema)
	return err
}

// Subscriptions возвращает все подписки ассистента в порядке добавления.
//
// Подписка на отсутствующую задачу возвращается с Task == nil.
func (s *Store) Subscriptions(ctx context.Context, assistantID string) ([]capability.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.active, t.id, t.name, t.description, t.instruction, t.active
		FROM assistant_task_subscriptions s
		LEFT JOIN tasks t ON t.id = s.task_id
		WHERE s.assistant_id = ?
		ORDER BY s.rowid`, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}

	var subs []capability.Subscription
	for rows.Next() {
		var (
			sub                              capability.Subscription
			taskID, name, description, instr sql.NullString
			taskActive                       sql.NullBool
		)
		if err := rows.Scan(&sub.ID, &sub.Active, &taskID, &name, &description, &instr, &taskActive); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if taskID.Valid {
			sub.Task = &capability.TaskRecord{
				ID:          taskID.String,
				Name:        name.String,
				Description: description.String,
				Instruction: instr.String,
				Active:      taskActive.Bool,
			}
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}
	rows.Close()

	// Детали грузим после закрытия курсора: у :memory: одно соединение
	for i := range subs {
		if subs[i].Task == nil {
			continue
		}
		if err := s.loadTaskDetails(ctx, subs[i].Task); err != nil {
			return nil, err
		}
	}

	return subs, nil
}

func (s *Store) loadTaskDetails(ctx context.Context, task *capability.TaskRecord) error {
	var fn capability.FunctionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description FROM task_functions WHERE task_id = ?`, task.ID).
		Scan(&fn.Name, &fn.Description)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return fmt.Errorf("failed to load function of task %s: %w", task.ID, err)
	default:
		params, err := s.loadParameters(ctx, task.ID)
		if err != nil {
			return err
		}
		fn.Parameters = params
		task.Function = &fn
	}

	fields, err := s.loadCustomFields(ctx, task.ID)
	if err != nil {
		return err
	}
	task.CustomFields = fields
	return nil
}

func (s *Store) loadParameters(ctx context.Context, taskID string) ([]capability.ParameterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, data_type, description, required
		FROM function_parameters WHERE task_id = ? ORDER BY position`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameters of task %s: %w", taskID, err)
	}
	defer rows.Close()

	var params []capability.ParameterRecord
	for rows.Next() {
		var p capability.ParameterRecord
		if err := rows.Scan(&p.Name, &p.DataType, &p.Description, &p.Required); err != nil {
			return nil, fmt.Errorf("failed to scan parameter: %w", err)
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

func (s *Store) loadCustomFields(ctx context.Context, taskID string) ([]capability.CustomFieldRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.field_name, f.label, f.data_type, f.description, tf.required
		FROM task_custom_fields tf
		JOIN crm_custom_fields f ON f.id = tf.field_id
		WHERE tf.task_id = ? ORDER BY tf.position`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query custom fields of task %s: %w", taskID, err)
	}
	defer rows.Close()

	var fields []capability.CustomFieldRecord
	for rows.Next() {
		var f capability.CustomFieldRecord
		if err := rows.Scan(&f.ID, &f.FieldName, &f.Label, &f.DataType, &f.Description, &f.Required); err != nil {
			return nil, fmt.Errorf("failed to scan custom field: %w", err)
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}
