// Логика - обрабатывает нажатия клавиш, ответы ассистента и результаты команд.

package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/israelwong/promediamx-sub009/internal/app"
	"github.com/israelwong/promediamx-sub009/internal/session"
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2 // + граница

		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 0 {
			vpHeight = 0
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			return m.submit()
		}

	case app.AssistantReplyMsg:
		switch {
		case errors.Is(msg.Err, session.ErrHandedOff):
			m.appendLog(systemMsgStyle("SYSTEM: "), "Разговор ведёт оператор, ассистент не отвечает.")
		case msg.Err != nil:
			m.appendLog(errorMsgStyle("ERROR: "), msg.Err.Error())
		default:
			prefix, text := FormatReply(msg.Response)
			m.appendLog(prefix, text)
		}
		m.textarea.Focus()
		return m, nil

	case app.CommandResultMsg:
		if msg.Err != nil {
			m.appendLog(errorMsgStyle("ERROR: "), msg.Err.Error())
		} else {
			m.appendLog(systemMsgStyle("SYSTEM: "), msg.Output)
		}
		m.textarea.Focus()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// submit разбирает введённую строку: команда консоли или сообщение ассистенту.
func (m MainModel) submit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	m.textarea.Reset()

	if input == "/quit" || input == "/exit" {
		return m, tea.Quit
	}

	m.appendLog(userMsgStyle("USER > "), input)

	if strings.HasPrefix(input, "/") {
		return m, m.app.GetCommandRegistry().Execute(input, m.app)
	}

	if m.app.GetProcessing() {
		m.appendLog(errorMsgStyle("ERROR: "), "Ассистент ещё отвечает на предыдущее сообщение")
		return m, nil
	}
	return m, app.AskCmd(m.app, input)
}

// appendLog добавляет запись в лог и прокручивает вниз.
func (m *MainModel) appendLog(prefix, text string) {
	m.lines = append(m.lines, logLine{prefix: prefix, text: text})
	m.refresh()
}
