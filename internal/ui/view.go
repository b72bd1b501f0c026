// Рендер

package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/israelwong/promediamx-sub009/pkg/response"
)

func (m MainModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	st := m.app.Session.State()
	status := fmt.Sprintf(" ASSISTANT: %s | MODEL: %s | PHASE: %s | STATUS: %s ",
		m.app.Session.AssistantID(),
		m.app.GetCurrentModel(),
		st.Phase,
		m.app.Session.Status(),
	)
	if m.app.GetProcessing() {
		status += m.spinner.View()
	}

	header := headerStyle.
		Width(m.viewport.Width).
		Render(status)

	border := lipgloss.NewStyle().
		Foreground(grayColor).
		Width(m.viewport.Width).
		Render(strings.Repeat("─", max(m.viewport.Width, 1)))

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		border,
		m.textarea.View(),
	)
}

// FormatReply превращает ответ ассистента в префикс и текст для лога.
//
// Для вызова функции показывает аргументы и подсказку, как вернуть результат.
func FormatReply(resp response.AssistantResponse) (string, string) {
	if resp.FunctionCall == nil {
		return assistantMsgStyle("ASISTENTE > "), resp.Text()
	}

	args, err := json.Marshal(resp.FunctionCall.Arguments)
	if err != nil || resp.FunctionCall.Arguments == nil {
		args = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", resp.FunctionCall.Name, args)
	if resp.Recovered {
		b.WriteString(" (восстановлено из текста)")
	}
	fmt.Fprintf(&b, "\nВыполните функцию и передайте результат: /result %s <json>", resp.FunctionCall.Name)
	return functionMsgStyle("FUNCTION > "), b.String()
}

// refresh перестраивает содержимое viewport с переносом по текущей ширине.
func (m *MainModel) refresh() {
	width := m.viewport.Width
	var b strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		text := l.text
		if width > 0 {
			text = wordwrap.String(text, width)
		}
		b.WriteString(l.prefix)
		b.WriteString(text)
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}
