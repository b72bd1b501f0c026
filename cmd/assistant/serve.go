package main

import (
	"github.com/spf13/cobra"

	"github.com/israelwong/promediamx-sub009/internal/server"
	"github.com/israelwong/promediamx-sub009/pkg/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API HTTP del asistente",
	Long: `serve запускает HTTP API:

  POST /v1/assistants/{id}/generate  ход ассистента
  GET  /healthz                      проверка живости
  GET  /metrics                      метрики Prometheus`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "адрес (по умолчанию server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cleanup := utils.SetupGracefulShutdownWithContext()
	defer cleanup()

	c, err := build(ctx, cfg, modelName)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	return server.New(c.Service, c.Registry).ListenAndServe(ctx, addr)
}
