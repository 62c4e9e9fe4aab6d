// Command prover boots the MPC-TLS oracle's HTTP service: it loads
// configuration and the notary identity, loads or builds the Groth16
// circuit artifacts, wires the SSRF guard and MPC-TLS driver into the
// HTTP router, and serves until a shutdown signal arrives.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/loca555/tls-oracle-near/config"
	"github.com/loca555/tls-oracle-near/httpapi"
	"github.com/loca555/tls-oracle-near/logging"
	"github.com/loca555/tls-oracle-near/mpctls"
	"github.com/loca555/tls-oracle-near/notary"
	"github.com/loca555/tls-oracle-near/urlguard"
	"github.com/loca555/tls-oracle-near/zkproof"
)

func main() {
	cfg := config.Load()

	log := logging.NewFromEnv()
	defer log.Sync()

	id, err := notary.Load(cfg.NotaryKeyPath)
	if err != nil {
		log.Critical("loading notary identity failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("notary identity loaded", zap.String("address", id.Address().Hex()))

	artifacts, err := zkproof.LoadOrSetup(cfg.ZkDir)
	if err != nil {
		log.Critical("loading or building circuit artifacts failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("circuit artifacts ready", zap.String("dir", cfg.ZkDir))

	guard := urlguard.New(cfg.AllowedPorts)
	driver := mpctls.New(id, log, cfg.SessionTimeout)

	server := httpapi.New(guard, driver, artifacts, id, log, httpapi.Limits{
		MaxSentBytes:          cfg.MaxSentBytes,
		MaxRecvBytes:          cfg.MaxRecvBytes,
		MaxConcurrentSessions: cfg.MaxConcurrentSessions,
	})

	addr := cfg.Bind + ":" + strconv.Itoa(cfg.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: httpapi.NewRouter(server),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("prover listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Critical("http server failed", zap.Error(err))
			os.Exit(1)
		}
	case <-sigCh:
		log.Info("shutdown signal received, draining in-flight sessions")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Warn("graceful shutdown did not complete cleanly", zap.Error(err))
		}
	}
}
