package assistant

import (
	"context"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/response"
)

// Service объединяет загрузку возможностей и ход ассистента для вызывающих,
// у которых есть только идентификатор ассистента.
type Service struct {
	resolver     *capability.Resolver
	orchestrator *Orchestrator
}

// NewService создаёт Service.
func NewService(resolver *capability.Resolver, orchestrator *Orchestrator) *Service {
	return &Service{resolver: resolver, orchestrator: orchestrator}
}

// Respond загружает возможности ассистента и выполняет ход.
//
// req.Capabilities заменяется загруженным набором. Ошибка загрузки
// (*errs.CapabilityLoadError) возвращается без обращения к бэкенду.
func (s *Service) Respond(ctx context.Context, assistantID string, req Request) (response.AssistantResponse, error) {
	caps, err := s.resolver.Resolve(ctx, assistantID)
	if err != nil {
		return response.AssistantResponse{}, err
	}
	req.Capabilities = caps
	return s.orchestrator.Generate(ctx, req)
}

// Capabilities возвращает активные возможности ассистента.
func (s *Service) Capabilities(ctx context.Context, assistantID string) ([]capability.TaskCapability, error) {
	return s.resolver.Resolve(ctx, assistantID)
}
