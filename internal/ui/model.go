// Package ui реализует Model компонент Bubble Tea TUI для разговора с ассистентом.
package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/israelwong/promediamx-sub009/internal/app"
)

// MainModel представляет главную модель UI (Bubble Tea Model).
//
// Содержит:
//   - viewport: лог разговора (только для чтения)
//   - textarea: поле ввода пользователя
//   - spinner: индикатор ожидания ответа
//   - app: состояние консоли с сессией
type MainModel struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	app *app.AppState

	// lines - отрендеренные строки лога. Держим отдельно от viewport,
	// чтобы перестраивать перенос при изменении ширины.
	lines []logLine

	// ready флаг для первой инициализации размеров
	ready bool
}

// logLine - запись лога до переноса строк.
type logLine struct {
	prefix string
	text   string
}

// InitialModel создает начальное состояние UI.
func InitialModel(state *app.AppState) MainModel {
	ta := textarea.New()
	ta.Placeholder = "Escribe tu mensaje o /help..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 1000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// Размеры (0,0) обновятся при первом событии WindowSizeMsg
	vp := viewport.New(0, 0)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := MainModel{
		textarea: ta,
		viewport: vp,
		spinner:  sp,
		app:      state,
	}
	m.appendLog(systemMsgStyle("SYSTEM: "), "Консоль ассистента "+state.Session.AssistantID()+" готова. /help - список команд.")
	return m
}

// Init запускает мигание курсора и спиннер.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}
