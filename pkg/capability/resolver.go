package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/errs"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Resolver загружает активные возможности ассистента из Source.
//
// Resolver не хранит состояния и не кэширует результат: каждый вызов
// Resolve читает хранилище заново.
type Resolver struct {
	source Source
}

// NewResolver создаёт Resolver поверх хранилища.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve возвращает возможности ассистента.
//
// В результат попадают только активные подписки на активные задачи.
// Ошибка хранилища или две возможности с одинаковым именем функции дают
// *errs.CapabilityLoadError; частичный набор не возвращается.
func (r *Resolver) Resolve(ctx context.Context, assistantID string) ([]TaskCapability, error) {
	if r.source == nil {
		return nil, &errs.CapabilityLoadError{AssistantID: assistantID, Err: fmt.Errorf("no capability source configured")}
	}

	subs, err := r.source.Subscriptions(ctx, assistantID)
	if err != nil {
		return nil, &errs.CapabilityLoadError{AssistantID: assistantID, Err: err}
	}

	caps := make([]TaskCapability, 0, len(subs))
	owners := make(map[string]string)

	for _, sub := range subs {
		if !sub.Active || sub.Task == nil || !sub.Task.Active {
			continue
		}

		c := FromRecord(*sub.Task)

		if fn := c.FunctionName(); fn != "" {
			if other, dup := owners[fn]; dup {
				return nil, &errs.CapabilityLoadError{
					AssistantID: assistantID,
					Err:         fmt.Errorf("function %q is bound to both %q and %q", fn, other, c.Name),
				}
			}
			owners[fn] = c.Name
		}

		caps = append(caps, c)
	}

	utils.Debug("Capabilities resolved",
		"assistant_id", assistantID,
		"subscriptions", len(subs),
		"active", len(caps))

	return caps, nil
}

// FromRecord нормализует сырую запись задачи в TaskCapability.
func FromRecord(task TaskRecord) TaskCapability {
	c := TaskCapability{
		ID:                  task.ID,
		Name:                task.Name,
		Description:         task.Description,
		FollowUpInstruction: task.Instruction,
	}

	for _, cf := range task.CustomFields {
		c.RequiredCustomFields = append(c.RequiredCustomFields, customFieldSpec(task.Name, cf))
	}

	if task.Function != nil {
		fn := &ToolFunction{
			Name:        task.Function.Name,
			Description: task.Function.Description,
		}
		params := make([]ParameterSpec, 0, len(task.Function.Parameters))
		for _, p := range task.Function.Parameters {
			params = append(params, ParameterSpec{
				Name:        p.Name,
				Type:        parseType(task.Function.Name, p.Name, p.DataType),
				Description: p.Description,
				Required:    p.Required,
			})
		}
		fn.Parameters = MergeCustomFields(params, c.RequiredCustomFields)
		c.ToolFunction = fn
	}

	return c
}

// customFieldSpec: имя - ключ поля или, если его нет, отображаемое имя;
// описание - описание для модели или отображаемое имя.
func customFieldSpec(taskName string, cf CustomFieldRecord) ParameterSpec {
	name := strings.TrimSpace(cf.FieldName)
	if name == "" {
		name = strings.TrimSpace(cf.Label)
	}
	desc := strings.TrimSpace(cf.Description)
	if desc == "" {
		desc = cf.Label
	}
	return ParameterSpec{
		Name:        name,
		Type:        parseType(taskName, name, cf.DataType),
		Description: desc,
		Required:    cf.Required,
	}
}

func parseType(owner, param, raw string) SemanticType {
	t, ok := ParseSemanticType(raw)
	if !ok {
		utils.Warn("Unmapped parameter type, using default",
			"owner", owner,
			"parameter", param,
			"raw_type", raw,
			"default", t)
	}
	return t
}
