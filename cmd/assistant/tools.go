package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/pkg/capability"
	"github.com/israelwong/promediamx-sub009/pkg/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Muestra y valida las funciones del asistente",
	Long: `tools загружает активные возможности ассистента, собирает из них набор
функций и проверяет его JSON схемой. Вывод - набор функций в JSON.`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

// Модель не нужна: достаточно хранилища возможностей.
func runTools(cmd *cobra.Command, args []string) error {
	source, closeSource, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer closeSource()

	caps, err := capability.NewResolver(source).Resolve(cmd.Context(), assistantID)
	if err != nil {
		return err
	}

	schema := tools.Compile(caps)
	if schema == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "assistant %s has no functions (%d capabilities)\n", assistantID, len(caps))
		return nil
	}
	if err := tools.Validate(schema); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}
