package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/israelwong/promediamx-sub009/pkg/errs"
)

// rateLimitedProvider ограничивает частоту запросов к бэкенду.
type rateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// RateLimited оборачивает провайдер token-bucket лимитером.
//
// Если контекст истекает раньше, чем освободится токен, возвращается
// повторяемая *errs.BackendUnavailableError; запрос к бэкенду не выполняется.
func RateLimited(p Provider, limit rate.Limit, burst int) Provider {
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitedProvider{
		next:    p,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (r *rateLimitedProvider) Generate(ctx context.Context, req Request) (ModelTurn, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return ModelTurn{}, &errs.BackendUnavailableError{Provider: "rate-limiter", Retryable: true, Err: err}
	}
	return r.next.Generate(ctx, req)
}
