package main

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/synnergy-chain/manynet/pkg/identity"
	"github.com/synnergy-chain/manynet/pkg/merkle"
	"github.com/synnergy-chain/manynet/pkg/server"
	transporthttp "github.com/synnergy-chain/manynet/transport/http"
)

// commitInterval is how often a standalone (non-consensus-driven) node
// flushes its pending writes to durable storage, mirroring the
// blockchain=false/"maybe_commit" convenience mode many-web's WebStorage
// offers alongside its blockchain=true, externally-committed mode.
const commitInterval = time.Second

func serveCmd() *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the node's request pipeline and HTTP transport gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(env)
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "environment overlay config name (e.g. production)")
	return cmd
}

func runServe(env string) error {
	n, err := setupNode(env)
	if err != nil {
		return err
	}
	defer n.store.Close()

	priv, err := loadOrCreateNodeKey(n.cfg.Server.Identity)
	if err != nil {
		return err
	}
	nodeID, err := identity.NewEd25519Identity(priv.Public().(ed25519.PublicKey), priv)
	if err != nil {
		return err
	}
	logrus.Infof("manyd: node address %s", nodeID.Address().String())

	cacheStore, err := merkle.Open(n.cfg.Storage.DBPath + ".cache")
	if err != nil {
		return err
	}
	defer cacheStore.Close()
	cache, err := server.NewResponseCache(cacheStore, 1024, 5*time.Minute)
	if err != nil {
		return err
	}
	async := server.NewAsyncStore(5 * time.Minute)

	serverMetrics := server.NewMetrics()
	srv := server.New(nodeID, identity.NewCompositeVerifier(), n.dispatcher, server.WallClock{}, cache, async).
		WithMetrics(serverMetrics)

	gateway := transporthttp.NewGateway(srv, n.events)

	stop := make(chan struct{})
	go commitLoop(n, stop)
	defer close(stop)

	router := gateway.Router()
	router.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{n.metrics.Registry(), serverMetrics.Registry()},
		promhttp.HandlerOpts{},
	))

	addr := n.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8880"
	}
	logrus.Infof("manyd: listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		logrus.Fatal(err)
	}
	return nil
}

// commitLoop periodically flushes the store so a standalone node's writes
// survive a restart without a consensus engine driving explicit commits.
func commitLoop(n *node, stop <-chan struct{}) {
	ticker := time.NewTicker(commitInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := n.store.Commit(); err != nil {
				logrus.Errorf("manyd: commit: %v", err)
			}
		case <-stop:
			return
		}
	}
}
