package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	addr := flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", os.Getenv("DB_PATH"), "results database path (empty disables recording)")
	jwtSecret := flag.String("jwt-secret", os.Getenv("JWT_SECRET"), "shared HS256 secret for session tokens")
	allowGuests := flag.Bool("allow-guests", os.Getenv("ALLOW_GUESTS") == "1", "admit connections without a token as guests")
	flag.Parse()

	if *jwtSecret == "" && !*allowGuests {
		log.Fatal("JWT_SECRET is required unless guests are allowed")
	}

	var recorder *Recorder
	var onEnd func(MatchResult)
	if *dbPath != "" {
		var err error
		recorder, err = OpenRecorder(*dbPath)
		if err != nil {
			log.Fatalf("open recorder: %v", err)
		}
		onEnd = recorder.Record
	}

	registry := NewRegistry(onEnd)
	stopTicks := make(chan struct{})
	go registry.Run(stopTicks)

	var identity Identity = NewJWTIdentity([]byte(*jwtSecret))
	if *allowGuests {
		identity = &GuestIdentity{Next: identity}
	}

	hub := NewHub(registry, StaticDirectory{Defaults: DefaultSettings()}, identity)
	go hub.Run()

	server := &http.Server{Addr: *addr, Handler: NewRouter(hub)}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	close(stopTicks)
	server.Close()
	if recorder != nil {
		recorder.Close()
	}
}
