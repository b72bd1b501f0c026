package s3storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

const catalogExt = ".json"

// CatalogSource реализует capability.Source поверх бакета.
//
// Каталог ассистента лежит по ключу <prefix>/<assistant_id>.json.
type CatalogSource struct {
	client ClientInterface
	prefix string
}

var _ capability.Source = (*CatalogSource)(nil)

// NewCatalogSource создаёт источник возможностей.
func NewCatalogSource(client ClientInterface, prefix string) *CatalogSource {
	return &CatalogSource{client: client, prefix: strings.Trim(prefix, "/")}
}

// Key возвращает ключ каталога ассистента.
func (s *CatalogSource) Key(assistantID string) string {
	return path.Join(s.prefix, assistantID+catalogExt)
}

// Subscriptions скачивает и разбирает каталог ассистента.
//
// Отсутствующий каталог означает ассистента без подписок.
func (s *CatalogSource) Subscriptions(ctx context.Context, assistantID string) ([]capability.Subscription, error) {
	catalog, err := s.load(ctx, s.Key(assistantID))
	if errors.Is(err, ErrNotFound) {
		utils.Warn("Capability catalog not found", "assistant_id", assistantID, "key", s.Key(assistantID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if catalog.AssistantID != "" && catalog.AssistantID != assistantID {
		return nil, fmt.Errorf("catalog %s belongs to assistant %q", s.Key(assistantID), catalog.AssistantID)
	}
	return catalog.Subscriptions, nil
}

// Catalogs скачивает все каталоги под префиксом (для импорта в SQLite).
//
// ID ассистента берётся из имени файла, если в каталоге он не указан.
func (s *CatalogSource) Catalogs(ctx context.Context) ([]capability.Catalog, error) {
	objects, err := s.client.ListFiles(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogs: %w", err)
	}

	var catalogs []capability.Catalog
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, catalogExt) {
			continue
		}
		catalog, err := s.load(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		if catalog.AssistantID == "" {
			catalog.AssistantID = strings.TrimSuffix(path.Base(obj.Key), catalogExt)
		}
		catalogs = append(catalogs, catalog)
	}
	return catalogs, nil
}

func (s *CatalogSource) load(ctx context.Context, key string) (capability.Catalog, error) {
	data, err := s.client.DownloadFile(ctx, key)
	if err != nil {
		return capability.Catalog{}, fmt.Errorf("failed to download catalog %s: %w", key, err)
	}
	catalog, err := capability.DecodeCatalog(data)
	if err != nil {
		return capability.Catalog{}, fmt.Errorf("%s: %w", key, err)
	}
	return catalog, nil
}
