package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/arcadium-net/profile-federation-api/internal/adapters/httpapi"
	"github.com/arcadium-net/profile-federation-api/internal/adapters/httppeer"
	memuserstore "github.com/arcadium-net/profile-federation-api/internal/adapters/memory/userstore"
	"github.com/arcadium-net/profile-federation-api/internal/adapters/postgres"
	pguserstore "github.com/arcadium-net/profile-federation-api/internal/adapters/postgres/userstore"
	"github.com/arcadium-net/profile-federation-api/internal/app/reconcile"
	platformclock "github.com/arcadium-net/profile-federation-api/internal/platform/clock"
	"github.com/arcadium-net/profile-federation-api/internal/platform/config"
	"github.com/arcadium-net/profile-federation-api/internal/ports/out/peerclient"
	userstoreport "github.com/arcadium-net/profile-federation-api/internal/ports/out/userstore"
)

func main() {
	// Local/dev convenience; deployments set real environment variables.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment directly")
	}

	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	clk := platformclock.NewSystemClock()

	var (
		store   userstoreport.Store
		cleanup func()
	)
	switch cfg.StorageBackend {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			log.Fatalf("invalid postgres config: %v", err)
		}
		if _, err := pool.Exec(context.Background(), postgres.Schema); err != nil {
			log.Fatalf("apply schema: %v", err)
		}
		cleanup = pool.Close
		store = pguserstore.NewStore(pool, clk)
	default:
		store = memuserstore.NewStore(clk)
	}
	if cleanup != nil {
		defer cleanup()
	}

	peers := make([]peerclient.Client, 0, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		peers = append(peers, httppeer.New(peer, cfg.PeerTimeout))
		log.Printf("configured peer %s (%s)", peer.Name, peer.BaseURL)
	}

	recon := reconcile.New(store, peers,
		reconcile.WithPeerFailurePolicy(reconcile.PeerFailurePolicy(cfg.PeerFailureMode)))

	handler := httpapi.NewRouter(httpapi.NewServer(recon, store), cfg.APIToken)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on :%s (storage=%s, peers=%d)", cfg.Port, cfg.StorageBackend, len(peers))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case sig := <-stop:
		log.Printf("received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
