package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agrisense/fieldwatch/module/core/alert"
	"github.com/agrisense/fieldwatch/module/core/domain"
	"github.com/agrisense/fieldwatch/module/core/render"
	"github.com/agrisense/fieldwatch/module/core/service"
)

const redialDelay = 3 * time.Second

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// fetchGeofence bootstraps the boundary over plain HTTP so the detector
// is armed even if the first websocket frame is a position.
func fetchGeofence(ctx context.Context, baseURL string) (*domain.Geofence, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/geofence", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNoGeofence
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geofence fetch: status %d", resp.StatusCode)
	}

	var fence domain.Geofence
	if err := json.NewDecoder(resp.Body).Decode(&fence); err != nil {
		return nil, fmt.Errorf("geofence decode: %w", err)
	}
	return &fence, nil
}

// stream reads events from one websocket session into out until the
// connection drops or ctx is cancelled.
func stream(ctx context.Context, wsURL string, out chan<- domain.Event) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log.Printf("connected to %s", wsURL)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var ev domain.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			log.Printf("skipping malformed event: %v", err)
			continue
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func main() {
	baseURL := getEnv("SERVER_URL", "http://localhost:8080")
	mapFile := getEnv("MAP_FILE", "gps_map.html")

	u, err := url.Parse(baseURL)
	if err != nil {
		log.Fatalf("server url: %v", err)
	}
	wsScheme := "ws"
	if u.Scheme == "https" {
		wsScheme = "wss"
	}
	wsURL := wsScheme + "://" + u.Host + "/ws"

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := service.NewTracker(alert.NewBellDispatcher(), render.NewMapRenderer(mapFile))

	if fence, err := fetchGeofence(ctx, baseURL); err == nil {
		tracker.HandleGeofence(fence)
		log.Printf("geofence loaded: %d vertices", len(fence.Vertices))
	} else if errors.Is(err, domain.ErrNoGeofence) {
		log.Printf("no geofence defined yet, waiting for one")
	} else {
		log.Printf("geofence fetch failed: %v", err)
	}

	events := make(chan domain.Event)
	go tracker.Run(ctx, events)

	for {
		err := stream(ctx, wsURL, events)
		if ctx.Err() != nil {
			log.Println("shutting down")
			return
		}
		log.Printf("connection lost (%v), retrying in %s", err, redialDelay)

		select {
		case <-time.After(redialDelay):
		case <-ctx.Done():
			log.Println("shutting down")
			return
		}
	}
}
