package main

import (
	"log"
	"net/http"
	"os"
	"strings"

	"colosseum-lite/apps/server/internal/gateway"
	"colosseum-lite/apps/server/internal/httpapi"
	"colosseum-lite/apps/server/internal/matchhub"
	"colosseum-lite/apps/server/internal/matchlog"
)

func main() {
	store, storeMode, err := matchlog.NewStoreFromEnv()
	if err != nil {
		log.Fatalf("[Server] Failed to init match log: %v", err)
	}
	defer store.Close()

	hub := matchhub.New(store)
	gw := gateway.New(hub)
	api := httpapi.NewHTTPHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/match", gw.HandleMatchSocket)
	mux.HandleFunc("/ws/match/", gw.HandleMatchSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	api.RegisterRoutes(mux)

	addr := listenAddrFromEnv()
	log.Printf("[Server] Match log mode: %s", storeMode)
	log.Printf("[Server] Starting server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("[Server] Failed to start: %v", err)
	}
}

func listenAddrFromEnv() string {
	raw := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if raw == "" {
		return ":8080"
	}
	if !strings.Contains(raw, ":") {
		return ":" + raw
	}
	return raw
}
