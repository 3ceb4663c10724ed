package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shardfs/shardfs/internal/logger"
	"github.com/shardfs/shardfs/pkg/client"
	"github.com/shardfs/shardfs/pkg/cluster"
	"github.com/shardfs/shardfs/pkg/config"
	"github.com/shardfs/shardfs/pkg/engine"
	"github.com/shardfs/shardfs/pkg/namespace"
	"github.com/shardfs/shardfs/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	initConfig := flag.Bool("init-config", false, "Write a sample config file and exit")
	forceInit := flag.Bool("force", false, "Overwrite an existing config file with -init-config")
	shardID := flag.Int("shard-id", -1, "Override cluster.shard_id")
	logLevel := flag.String("log-level", "", "Override logging.level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	if *initConfig {
		runInitConfig(*configPath, *forceInit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flag overrides beat both file and environment.
	if *shardID >= 0 {
		cfg.Cluster.ShardID = uint32(*shardID)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	topo, err := config.BuildTopology(&cfg.Cluster)
	if err != nil {
		log.Fatalf("Failed to build cluster topology: %v", err)
	}
	router := cluster.NewRouter(topo)
	self := cluster.ShardID(cfg.Cluster.ShardID)

	// Only the shard the router maps "/" to seeds the root entry.
	ownsRoot := router.Route(namespace.Root) == self

	nsStore, err := config.CreateNamespaceStore(ctx, &cfg.Store, ownsRoot)
	if err != nil {
		log.Fatalf("Failed to create namespace store: %v", err)
	}
	defer func() { _ = nsStore.Close() }()

	contentStore, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}
	defer func() { _ = contentStore.Close() }()

	peers := client.New(router, client.Options{
		CallTimeout:    cfg.Cluster.PeerTimeout,
		MaxMessageSize: cfg.Server.MaxMessageSize,
	})
	defer func() { _ = peers.Close() }()

	eng, err := engine.New(engine.Config{
		Self:        self,
		Router:      router,
		Store:       nsStore,
		Content:     contentStore,
		Peers:       peers,
		PeerTimeout: cfg.Cluster.PeerTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	addr := cfg.Server.BindAddr
	if addr == "" {
		addr, err = topo.Addr(self)
		if err != nil {
			log.Fatalf("Failed to resolve listen address: %v", err)
		}
	}

	srv, err := server.New(server.Config{
		Addr:            addr,
		MaxConnections:  cfg.Server.MaxConnections,
		MaxMessageSize:  cfg.Server.MaxMessageSize,
		AcceptRate:      cfg.Server.AcceptRate,
		AcceptBurst:     cfg.Server.AcceptBurst,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, eng)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	logger.Info("shardfs node starting: shard=%d/%d addr=%s owns_root=%t store=%s content=%s",
		self, topo.Size(), addr, ownsRoot, cfg.Store.Type, cfg.Content.Type)

	if err := srv.Listen(); err != nil {
		log.Fatalf("Failed to listen on %s: %v", addr, err)
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}

func runInitConfig(path string, force bool) {
	var err error
	if path == "" {
		path, err = config.InitConfig(force)
	} else {
		err = config.InitConfigToPath(path, force)
	}
	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	fmt.Printf("Config file written to %s\n", path)
}
