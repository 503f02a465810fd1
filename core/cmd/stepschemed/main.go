package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	scheme "github.com/rphilander/stepscheme/core"
)

func main() {
	cfg, err := scheme.LoadConfig(os.Getenv("STEPSCHEME_CONFIG"))
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		log.Fatalf("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	session, err := scheme.NewSession(cfg.SessionOptions()...)
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}
	traces, err := cfg.OpenTraceStore()
	if err != nil {
		session.Close()
		log.Fatalf("failed to open trace store: %v", err)
	}

	srv := scheme.NewServer(session, traces)
	if err := srv.Listen(cfg.Socket); err != nil {
		session.Close()
		traces.Close()
		log.Fatalf("failed to start server: %v", err)
	}

	var frontend *scheme.HTTPFrontend
	if cfg.HTTPAddr != "" {
		frontend = scheme.NewHTTPFrontend(srv)
		go func() {
			if err := frontend.ListenAndServe(cfg.HTTPAddr); err != nil {
				log.Printf("%v", err)
			}
		}()
	}

	// Handle shutdown signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Println("shutting down...")
		if frontend != nil {
			frontend.Shutdown()
		}
		srv.Shutdown()
	}()

	log.Printf("stepscheme listening (socket: %s, transcript: %q, trace db: %q, max steps: %d)",
		cfg.Socket, cfg.Transcript, cfg.TraceDB, cfg.MaxSteps)
	srv.Run()
	os.Remove(cfg.Socket)
}
