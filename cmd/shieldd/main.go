// main.go - shieldd: the shielded resource proving service.
//
// shieldd compiles the compliance circuit, loads or generates the Groth16
// key set, and serves the protocol's boundary operations over HTTP:
// resource construction, witness assembly, proving, receipt verification,
// payload encryption and the commitment accumulator.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"shielded/internal/engine"
)

const version = "0.2.0"

func main() {
	var configPath string
	var listen string

	root := &cobra.Command{
		Use:     "shieldd",
		Short:   "Shielded resource compliance proving service",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return run(cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	root.Flags().StringVarP(&listen, "listen", "l", "", "override listen address")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *Config) error {
	log := newLogger(cfg.LogLevel)
	log.Info().Str("version", version).Msg("starting shieldd")

	start := time.Now()
	ccs, err := engine.CompileComplianceCircuit()
	if err != nil {
		return err
	}
	pk, vk, err := engine.SetupOrLoadKeys(ccs, cfg.KeyDir)
	if err != nil {
		return err
	}
	eng, err := engine.NewGroth16EngineFromKeys(ccs, pk, vk, log)
	if err != nil {
		return err
	}
	image := eng.ImageID()
	log.Info().
		Dur("took", time.Since(start)).
		Hex("image", image[:]).
		Msg("compliance circuit ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	srv := newServer(cfg, log, eng, reg)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.routes(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Listen).Msg("serving")
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		srv.pool.Close()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
