package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/s3storage"
	"github.com/israelwong/promediamx-sub009/pkg/store"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

var (
	seedFile   string
	seedFromS3 bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Carga catálogos de capacidades en SQLite",
	Long: `seed записывает каталоги возможностей в SQLite (store.path).

Источник: --file (JSON каталог), --from-s3 (все каталоги из бакета)
или встроенный демо-каталог. Подписки ассистента заменяются целиком.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "JSON файл каталога")
	seedCmd.Flags().BoolVar(&seedFromS3, "from-s3", false, "импортировать все каталоги из S3")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	catalogs, err := seedCatalogs(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, catalog := range catalogs {
		if err := st.Import(ctx, catalog); err != nil {
			return err
		}
		utils.Info("Catalog imported",
			"assistant_id", catalog.AssistantID,
			"subscriptions", len(catalog.Subscriptions))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d subscriptions -> %s\n",
			catalog.AssistantID, len(catalog.Subscriptions), st.Path())
	}
	return nil
}

func seedCatalogs(cmd *cobra.Command) ([]capability.Catalog, error) {
	switch {
	case seedFile != "" && seedFromS3:
		return nil, fmt.Errorf("--file and --from-s3 are mutually exclusive")

	case seedFile != "":
		data, err := os.ReadFile(seedFile)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		catalog, err := capability.DecodeCatalog(data)
		if err != nil {
			return nil, err
		}
		return []capability.Catalog{catalog}, nil

	case seedFromS3:
		client, err := s3storage.New(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3storage.NewCatalogSource(client, cfg.S3.Prefix).Catalogs(cmd.Context())

	default:
		catalog, err := store.DemoCatalog()
		if err != nil {
			return nil, err
		}
		return []capability.Catalog{catalog}, nil
	}
}
