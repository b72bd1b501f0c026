package tools

import (
	"fmt"
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Compile собирает объявления функций из возможностей ассистента.
//
// Правила:
//   - возможности без функции пропускаются
//   - при повторе имени функции остаётся первое объявление
//   - пользовательские поля добавляются, если имя ещё не занято параметром
//   - required на уровне схемы всегда пустой
//
// Возвращает nil, если ни одна возможность не привязана к функции.
func Compile(caps []capability.TaskCapability) *ToolSchema {
	var decls []FunctionDeclaration
	seen := make(map[string]struct{})

	for _, c := range caps {
		fn := c.ToolFunction
		if fn == nil {
			continue
		}
		name := strings.TrimSpace(fn.Name)
		if name == "" {
			utils.Warn("Capability has a function without a name, skipping", "capability", c.Name)
			continue
		}
		if _, dup := seen[name]; dup {
			utils.Warn("Duplicate function name, keeping first declaration",
				"function", name, "capability", c.Name)
			continue
		}
		seen[name] = struct{}{}

		decls = append(decls, declare(name, fn, c.RequiredCustomFields))
	}

	if len(decls) == 0 {
		return nil
	}
	return &ToolSchema{FunctionDeclarations: decls}
}

func declare(name string, fn *capability.ToolFunction, customFields []capability.ParameterSpec) FunctionDeclaration {
	params := ParameterSchema{
		Type:       "object",
		Properties: make(map[string]Property, len(fn.Parameters)+len(customFields)),
		Required:   []string{},
	}

	add := func(p capability.ParameterSpec, fallback string) {
		if p.Name == "" {
			return
		}
		if _, exists := params.Properties[p.Name]; exists {
			return
		}
		desc := strings.TrimSpace(p.Description)
		if desc == "" {
			desc = fmt.Sprintf(fallback, p.Name)
		}
		typ := p.Type
		if typ == "" {
			typ = capability.TypeString
		}
		params.Properties[p.Name] = Property{Type: typ, Description: desc}
		params.Order = append(params.Order, p.Name)
	}

	for _, p := range fn.Parameters {
		add(p, "Parámetro %s")
	}
	for _, cf := range customFields {
		add(cf, "Campo personalizado %s")
	}

	desc := strings.TrimSpace(fn.Description)
	if desc == "" {
		desc = fmt.Sprintf("Ejecuta la acción %s", name)
	}

	return FunctionDeclaration{
		Name:        name,
		Description: desc,
		Parameters:  params,
	}
}

// Names возвращает имена объявленных функций в порядке компиляции.
func (s *ToolSchema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.FunctionDeclarations))
	for _, d := range s.FunctionDeclarations {
		names = append(names, d.Name)
	}
	return names
}

// Lookup ищет объявление по имени функции.
func (s *ToolSchema) Lookup(name string) (FunctionDeclaration, bool) {
	if s == nil {
		return FunctionDeclaration{}, false
	}
	for _, d := range s.FunctionDeclarations {
		if d.Name == name {
			return d, true
		}
	}
	return FunctionDeclaration{}, false
}
