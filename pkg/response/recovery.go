package response

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// Recoverer извлекает вызов функции, который модель вернула текстом.
type Recoverer interface {
	// Recover возвращает вызов и текст подтверждения для пользователя.
	// ok=false - в тексте нет пригодного вызова, текст остаётся ответом.
	Recover(text string) (call *FunctionCall, ack string, ok bool)
}

// fencedJSONRe находит первый блок ```json ... ```.
var fencedJSONRe = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// FencedJSON распознаёт блок вида
//
//	```json
//	{"functionCall": {"name": "...", "args": {...}}}
//	```
//
// Некорректный JSON не является ошибкой: текст просто не распознан.
type FencedJSON struct{}

// Recover реализует Recoverer.
func (FencedJSON) Recover(text string) (*FunctionCall, string, bool) {
	m := fencedJSONRe.FindStringSubmatch(text)
	if m == nil {
		return nil, "", false
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, "", false
	}

	fc, ok := payload["functionCall"].(map[string]any)
	if !ok {
		return nil, "", false
	}
	name, ok := fc["name"].(string)
	if !ok || name == "" {
		return nil, "", false
	}
	args, ok := fc["args"].(map[string]any)
	if !ok {
		return nil, "", false
	}

	ack := fmt.Sprintf("Entendido. Procesando tu solicitud para: %s.", name)
	return &FunctionCall{Name: name, Arguments: args}, ack, true
}
