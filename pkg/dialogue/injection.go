// Package dialogue определяет, нужно ли добавить к системной инструкции
// указание возможности, чья функция только что выполнилась.
package dialogue

import (
	"fmt"
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/llm"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// ResolveInjection ищет в истории последний выполненный вызов функции
// и возвращает дополнение к системной инструкции из FollowUpInstruction
// привязанной возможности.
//
// Алгоритм:
//  1. Если последний ход - пользователь и ходов больше одного, поиск
//     начинается с предпоследнего хода, иначе с последнего.
//  2. Первый встреченный при обратном проходе ход function с именем функции
//     задаёт имя; ходы function без имени пропускаются.
//  3. Форма "function → model → user" вычисляется и только логируется:
//     поиск указания выполняется в любом случае.
//  4. Непустое указание возможности с этим именем функции форматируется.
func ResolveInjection(history []llm.Turn, caps []capability.TaskCapability) (string, bool) {
	if len(history) == 0 {
		return "", false
	}

	last := len(history) - 1
	start := last
	if history[last].Role == llm.RoleUser && len(history) > 1 {
		start = last - 1
	}

	for i := start; i >= 0; i-- {
		resp := history[i].FunctionResponse
		if history[i].Role != llm.RoleFunction || resp == nil || resp.Name == "" {
			continue
		}
		name := resp.Name

		matched := i+1 < len(history) &&
			history[i+1].Role == llm.RoleModel &&
			history[last].Role == llm.RoleUser
		utils.Debug("Executed function found in history",
			"function", name,
			"index", i,
			"pattern_matched", matched)

		return lookup(name, caps)
	}

	return "", false
}

// lookup возвращает отформатированное указание для функции name.
func lookup(name string, caps []capability.TaskCapability) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, c := range caps {
		if c.FunctionName() != name {
			continue
		}
		instr := strings.TrimSpace(c.FollowUpInstruction)
		if instr == "" {
			return "", false
		}
		return FormatInjection(name, instr), true
	}
	return "", false
}

// FormatInjection форматирует дополнение к системной инструкции.
func FormatInjection(function, instruction string) string {
	return fmt.Sprintf("\n\n**Instrucciones Adicionales para tu Respuesta Actual "+
		"(basado en la función '%s' que acaba de completarse y cuya respuesta ya ha sido mostrada al usuario):**\n"+
		"%s\n"+
		"Considera esta instrucción al formular tu respuesta de texto actual al usuario.",
		function, instruction)
}
