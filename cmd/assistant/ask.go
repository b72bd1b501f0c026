package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/pkg/assistant"
	"github.com/israelwong/promediamx-sub009/pkg/dialogue"
	"github.com/israelwong/promediamx-sub009/pkg/errs"
)

var historyFile string

var askCmd = &cobra.Command{
	Use:   "ask <mensaje>",
	Short: "Un turno del asistente, respuesta en JSON",
	Long: `ask выполняет один ход ассистента и печатает ответ в JSON.

История разговора передаётся файлом --history: JSON массив записей
({"role": "user|assistant|function", "partType": ..., "text": ...}).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&historyFile, "history", "", "JSON файл с записями разговора")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var records []dialogue.Record
	if historyFile != "" {
		data, err := os.ReadFile(historyFile)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse history: %w", err)
		}
	}

	c, err := build(ctx, cfg, modelName)
	if err != nil {
		return err
	}
	defer c.Close()

	resp, err := c.Service.Respond(ctx, assistantID, assistant.Request{
		Assistant: assistantContext(),
		History:   dialogue.TurnsFromRecords(records),
		Message:   strings.Join(args, " "),
	})
	if err != nil {
		if errs.IsRetryable(err) {
			return fmt.Errorf("%w (retryable)", err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"model":    c.Model,
		"response": resp,
		"record":   dialogue.RecordFromResponse(resp),
	})
}
