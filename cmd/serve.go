package cmd

import (
	"github.com/spf13/cobra"

	"splitroom/internal/logger"
	"splitroom/internal/observability"
	"splitroom/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API:

  POST /api/analyze-bill   one PDF ("file") or up to 12 screenshots ("files")
  POST /api/scan-bill      PDF text layer only
  POST /api/ocr-bill       local OCR only
  POST /api/di-bill        cloud analysis only (?pages=1-2)
  POST /api/split          allocate a JSON session (?benchmark=false to skip)
  GET  /health
  GET  /metrics            Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default HTTP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")
	cfg := appConfig

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, stop := commandContext(0)
	defer stop()

	metrics := observability.NewMetrics()
	p, err := buildPipeline(ctx, metrics, log)
	if err != nil {
		return err
	}
	defer p.Close()

	log.Info().
		Str("addr", addr).
		Bool("cloud", p.analyzer.Cascade().HasCloud()).
		Bool("refiner", cfg.HasAI()).
		Int("max_upload_mb", cfg.MaxUploadMB).
		Dur("request_timeout", cfg.RequestTimeout).
		Msg("starting server")

	srv := server.New(p.analyzer, metrics, server.Options{
		MaxUploadMB:    cfg.MaxUploadMB,
		RequestTimeout: cfg.RequestTimeout,
	})
	return srv.ListenAndServe(ctx, addr)
}
