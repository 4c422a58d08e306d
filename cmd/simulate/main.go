package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Hammers one slot of one appointment type with concurrent booking
// requests and reports the outcome distribution. With a resource of
// capacity C, exactly C requests must succeed no matter how many workers
// race.
type SimConfig struct {
	APIBaseURL    string
	AppointmentID string
	ResourceID    string
	ProviderID    string
	StartTime     string // RFC3339
	Workers       int
}

type outcome struct {
	created   atomic.Int64
	capacity  atomic.Int64
	conflicts atomic.Int64
	other     atomic.Int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadSimConfig()
	log.Printf("simulating %d concurrent bookings for appointment %s at %s",
		cfg.Workers, cfg.AppointmentID, cfg.StartTime)

	var results outcome
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runBooking(cfg, &results)
		}()
	}
	wg.Wait()

	fmt.Printf("done in %s\n", time.Since(start))
	fmt.Printf("created:            %d\n", results.created.Load())
	fmt.Printf("capacity_exceeded:  %d\n", results.capacity.Load())
	fmt.Printf("booking_conflict:   %d\n", results.conflicts.Load())
	fmt.Printf("other:              %d\n", results.other.Load())
}

func runBooking(cfg SimConfig, results *outcome) {
	body := map[string]any{
		"appointment_id": cfg.AppointmentID,
		"booker_user_id": uuid.NewString(),
		"start_time":     cfg.StartTime,
	}
	if cfg.ResourceID != "" {
		body["resource_id"] = cfg.ResourceID
	}
	if cfg.ProviderID != "" {
		body["provider_id"] = cfg.ProviderID
	}

	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("marshal request: %v", err)
		results.other.Add(1)
		return
	}

	resp, err := http.Post(cfg.APIBaseURL+"/bookings", "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("post booking: %v", err)
		results.other.Add(1)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		results.created.Add(1)
		return
	}

	var apiErr struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(data, &apiErr)

	switch apiErr.Error {
	case "capacity_exceeded", "no_provider_available":
		results.capacity.Add(1)
	case "booking_conflict":
		results.conflicts.Add(1)
	default:
		log.Printf("unexpected response %d: %s", resp.StatusCode, data)
		results.other.Add(1)
	}
}

func loadSimConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		AppointmentID: os.Getenv("SIM_APPOINTMENT_ID"),
		ResourceID:    os.Getenv("SIM_RESOURCE_ID"),
		ProviderID:    os.Getenv("SIM_PROVIDER_ID"),
		StartTime:     os.Getenv("SIM_START_TIME"),
		Workers:       getEnvInt("SIM_WORKERS", 20),
	}

	if cfg.AppointmentID == "" || cfg.StartTime == "" {
		log.Fatal("SIM_APPOINTMENT_ID and SIM_START_TIME are required")
	}
	if _, err := time.Parse(time.RFC3339, cfg.StartTime); err != nil {
		log.Fatalf("SIM_START_TIME must be RFC3339: %v", err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
