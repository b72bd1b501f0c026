// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider - контракт для любого генеративного бэкенда.
//
// Реализации обязаны выполнить ровно один запрос к бэкенду на вызов
// и вернуть транспортные ошибки как *errs.BackendUnavailableError.
type Provider interface {
	Generate(ctx context.Context, req Request) (ModelTurn, error)
}

// ProviderFunc позволяет использовать функцию как Provider.
type ProviderFunc func(ctx context.Context, req Request) (ModelTurn, error)

// Generate вызывает f(ctx, req).
func (f ProviderFunc) Generate(ctx context.Context, req Request) (ModelTurn, error) {
	return f(ctx, req)
}
