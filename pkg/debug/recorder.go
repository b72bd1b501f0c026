package debug

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Recorder сохраняет обмены с моделью в директорию логов.
//
// Потокобезопасен: каждый обмен пишется в собственный файл.
type Recorder struct {
	logsDir string
	now     func() time.Time
}

// NewRecorder создает Recorder.
//
// Если logsDir не существует, пытается создать её.
func NewRecorder(logsDir string) (*Recorder, error) {
	if logsDir == "" {
		return nil, fmt.Errorf("debug logs directory is empty")
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return &Recorder{logsDir: logsDir, now: time.Now}, nil
}

// Wrap оборачивает провайдер: каждый вызов Generate записывается в файл.
//
// Ошибка записи лога не влияет на результат вызова.
func (r *Recorder) Wrap(next llm.Provider, model string) llm.Provider {
	return llm.ProviderFunc(func(ctx context.Context, req llm.Request) (llm.ModelTurn, error) {
		start := r.now()
		turn, err := next.Generate(ctx, req)

		ex := Exchange{
			ID:        uuid.NewString(),
			Timestamp: start,
			Model:     model,
			Duration:  r.now().Sub(start).Milliseconds(),
			Request: RequestEntry{
				SystemInstruction: req.SystemInstruction,
				Tools:             req.Tools,
				History:           req.History,
				Message:           req.Message,
			},
		}
		if err != nil {
			ex.Error = err.Error()
		} else {
			ex.Response = &ResponseEntry{
				FinishReason:    turn.FinishReason,
				RawFinishReason: turn.RawFinishReason,
				Text:            turn.Text,
				FunctionCall:    turn.FunctionCall,
			}
		}

		if path, werr := r.Save(ex); werr != nil {
			utils.Warn("Failed to write debug log", "error", werr)
		} else {
			utils.Debug("Debug log written", "path", path)
		}

		return turn, err
	})
}

// Save сохраняет обмен и возвращает путь к файлу.
func (r *Recorder) Save(ex Exchange) (string, error) {
	data, err := json.MarshalIndent(ex, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal debug log: %w", err)
	}

	name := fmt.Sprintf("exchange_%s_%s.json", ex.Timestamp.Format("20060102_150405"), ex.ID)
	path := filepath.Join(r.logsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write debug log: %w", err)
	}
	return path, nil
}
