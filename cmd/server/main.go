package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mindgauge/backend/internal/config"
	"github.com/mindgauge/backend/internal/frontend"
	"github.com/mindgauge/backend/internal/mock"
	"github.com/mindgauge/backend/internal/session"
	"github.com/mindgauge/backend/internal/ws"
)

func main() {
	mockMode := flag.Bool("mock", false, "Use the in-process mock headset device")
	devMode := flag.Bool("dev", false, "Development mode (serve frontend from filesystem)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *port > 0 {
		cfg.Server.Port = *port
	}

	cfg.LoadCredentials()
	if err := cfg.ResolveEndpoint(*mockMode); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *mockMode {
		log.Println("Starting in mock mode")
		addr, err := deviceAddr(cfg.Cortex.URL)
		if err != nil {
			log.Fatalf("Invalid mock device URL: %v", err)
		}
		device := mock.NewDevice()
		go func() {
			if err := device.ListenAndServe(ctx, addr); err != nil {
				log.Fatalf("Mock device error: %v", err)
			}
		}()
	} else {
		log.Println("Starting in real mode (cortex endpoint)")
	}

	broadcaster := ws.NewBroadcaster()
	manager := session.NewManager(cfg, broadcaster)

	frontendDir := ""
	if *devMode {
		exe, _ := os.Executable()
		frontendDir = filepath.Join(filepath.Dir(exe), "..", "..", "frontend")
		// If running with go run, the exe path is in a temp dir, use CWD instead
		if _, err := os.Stat(frontendDir); os.IsNotExist(err) {
			cwd, _ := os.Getwd()
			frontendDir = filepath.Join(cwd, "..", "frontend")
		}
	}

	// Embedded frontend handler: when built with -tags embed, serves from binary.
	// Otherwise falls back to serving from the filesystem.
	var embeddedHandler http.Handler
	if !*devMode {
		embeddedHandler = frontend.Handler()
		if embeddedHandler == nil {
			cwd, _ := os.Getwd()
			fallback := filepath.Join(cwd, "..", "frontend")
			if _, err := os.Stat(fallback); err == nil {
				log.Printf("No embedded frontend, falling back to: %s", fallback)
				embeddedHandler = http.FileServer(http.Dir(fallback))
			}
		}
	}

	server := ws.NewServer(manager, broadcaster, frontendDir, *devMode, embeddedHandler)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutting down...")
		manager.Disconnect()
		cancel()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// deviceAddr extracts host:port from the configured mock websocket URL.
func deviceAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}
