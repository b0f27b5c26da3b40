package main

import (
	"log"
	"net/http"

	"mafiad/internal/config"
	"mafiad/internal/coordinator"
	"mafiad/internal/oracle"
	"mafiad/internal/registry"
	"mafiad/internal/server"
	"mafiad/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	var client oracle.Client = oracle.Random{}
	if cfg.OpenAIAPIKey != "" {
		client = oracle.NewOpenAI(oracle.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
	} else {
		log.Printf("no OPENAI_API_KEY set; AI participants use the random policy")
	}
	adapter := oracle.NewAdapter(client, cfg.OracleTimeout)

	reg := registry.New(store)
	hub := server.NewHub()
	reg.SetNotifier(hub)
	coord := coordinator.New(reg, adapter)

	if err := reg.Restore(); err != nil {
		log.Printf("warning: restore matches: %v", err)
	}
	go reg.CleanupLoop(cfg.CleanupInterval, cfg.MatchMaxAge)

	srv := server.New(reg, coord, hub)

	addr := ":" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatalf("server: %v", err)
	}
}
