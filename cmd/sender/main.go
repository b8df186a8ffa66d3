package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type positionMessage struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func post(target string, msg positionMessage) {
	payload, _ := json.Marshal(msg)

	resp, err := http.Post(target, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("post failed: %v", err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("post rejected: status %d", resp.StatusCode)
		return
	}
	log.Printf("sent %s", payload)
}

// sendFromStdin forwards "lat,lon" lines, one report per line. Blank
// lines and '#' comments are skipped; a bad line is logged and skipped.
func sendFromStdin(target string) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			log.Printf("skipping malformed line: %q", line)
			continue
		}
		lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if errLat != nil || errLon != nil {
			log.Printf("skipping malformed line: %q", line)
			continue
		}

		post(target, positionMessage{Lat: lat, Lon: lon})
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("stdin: %v", err)
	}
}

// sendSimulated posts a random walk that mostly loiters but
// occasionally strides, so a fence drawn around the start point gets
// crossed now and then.
func sendSimulated(target string, interval time.Duration) {
	lat := -6.2088
	lon := 106.8456

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		step := 0.0002 // ~20m
		if rand.Float64() < 0.2 {
			step = 0.002
		}
		lat += (rand.Float64() - 0.5) * 2 * step
		lon += (rand.Float64() - 0.5) * 2 * step

		post(target, positionMessage{Lat: lat, Lon: lon})
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>|-\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  <interval_seconds>  post a simulated walk on an interval\n")
		fmt.Fprintf(os.Stderr, "  -                   read \"lat,lon\" lines from stdin\n")
		os.Exit(1)
	}

	baseURL := getEnv("SERVER_URL", "http://localhost:8080")
	target := baseURL + "/api/gps"

	if os.Args[1] == "-" {
		log.Printf("posting stdin reports to %s...", target)
		sendFromStdin(target)
		return
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	log.Printf("posting to %s every %ds...", target, intervalSec)
	sendSimulated(target, time.Duration(intervalSec)*time.Second)
}
