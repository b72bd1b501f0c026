// Консоль и HTTP API ассистента с вызовом функций.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/pkg/config"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

// Флаги, общие для всех подкоманд.
var (
	configPath    string
	modelName     string
	assistantID   string
	assistantName string
	businessName  string
	debugMode     bool
)

// cfg загружается в PersistentPreRunE до запуска подкоманды.
var cfg *config.AppConfig

var rootCmd = &cobra.Command{
	Use:          "assistant",
	Short:        "Asistente conversacional con llamadas a funciones",
	SilenceUsage: true,
	Long: `assistant выполняет ходы ассистента бизнеса: загружает его возможности
из хранилища (SQLite или каталог в S3), предлагает модели функции и возвращает
текст ответа или вызов функции.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		debug := cfg.App.Debug || debugMode
		if err := utils.InitLogger(cfg.App.LogFile, debug); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to init logger: %v\n", err)
		}
		utils.Info("Config loaded",
			"path", configPath,
			"default_model", cfg.Models.Default,
			"store", cfg.Store.Driver)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		utils.Close()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "config.yaml", "путь к config.yaml")
	flags.StringVarP(&modelName, "model", "m", "", "модель из models.definitions (по умолчанию models.default)")
	flags.StringVarP(&assistantID, "assistant", "a", "demo-clinica", "идентификатор ассистента")
	flags.StringVar(&assistantName, "assistant-name", "Sofía", "имя ассистента в системной инструкции")
	flags.StringVar(&businessName, "business", "Clínica Dental Sonrisa", "название бизнеса")
	flags.BoolVar(&debugMode, "debug", false, "уровень логирования DEBUG")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
