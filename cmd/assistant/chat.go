package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/internal/app"
	"github.com/israelwong/promediamx-sub009/internal/session"
	"github.com/israelwong/promediamx-sub009/internal/ui"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Consola interactiva con el asistente",
	Long: `chat открывает консоль разговора с ассистентом.

Вызов функции ассистентом показывается в логе; результат её выполнения
передаётся командой /result <функция> <json>.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	c, err := build(cmd.Context(), cfg, modelName)
	if err != nil {
		return err
	}
	defer c.Close()

	sess := session.New(c.Service, assistantID, assistantContext(),
		session.WithHistoryLimit(cfg.Assistant.HistoryLimit))
	state := app.NewAppState(sess, c.Service, c.Model)
	state.Timeout = cfg.Assistant.Timeout + 30*time.Second

	utils.Info("Starting TUI", "session_id", sess.ID(), "assistant_id", assistantID)

	// Без AltScreen: текст лога можно выделять и копировать
	p := tea.NewProgram(ui.InitialModel(state))
	if _, err := p.Run(); err != nil {
		utils.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	utils.Info("Chat exited", "session_id", sess.ID(), "turns", len(sess.History()))
	return nil
}
