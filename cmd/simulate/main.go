package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// simulate hammers one (doctor, room, day, time) slot with concurrent
// booking requests against a running api-server. Exactly one request should
// come back 201; everything else should be a 409.
type SimConfig struct {
	APIBaseURL string
	Workers    int
	Rounds     int
	DoctorID   string
	RoomID     string
	PatientIDs []string
	Procedure  string
	Day        string
}

type Metrics struct {
	Total     int64
	Booked    int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Error, 1)
	}

	m.mu.Lock()
	m.Latencies = append(m.Latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.Latencies))
	copy(latencies, m.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := SimConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://127.0.0.1:8080"),
		Workers:    getEnvInt("SIM_WORKERS", 20),
		Rounds:     getEnvInt("SIM_ROUNDS", 10),
		DoctorID:   os.Getenv("SIM_DOCTOR_ID"),
		RoomID:     os.Getenv("SIM_ROOM_ID"),
		Procedure:  os.Getenv("SIM_PROCEDURE_ID"),
		Day:        getEnv("SIM_DAY", time.Now().AddDate(0, 0, 30).Format("2006-01-02")),
	}
	for _, id := range []string{cfg.DoctorID, cfg.RoomID, cfg.Procedure} {
		if id == "" {
			log.Fatal("SIM_DOCTOR_ID, SIM_ROOM_ID and SIM_PROCEDURE_ID are required (take them from the seed output or the DB)")
		}
	}

	patientsRaw := os.Getenv("SIM_PATIENT_IDS")
	if patientsRaw == "" {
		log.Fatal("SIM_PATIENT_IDS is required (comma separated UUIDs)")
	}
	cfg.PatientIDs = splitCSV(patientsRaw)

	log.Printf("simulating %d workers x %d rounds against %s", cfg.Workers, cfg.Rounds, cfg.APIBaseURL)

	client := &http.Client{Timeout: 10 * time.Second}
	var metrics Metrics

	times := slotTimes()
	for round := 0; round < cfg.Rounds; round++ {
		slot := times[round%len(times)]
		runRound(client, cfg, &metrics, slot)
	}

	avg, p50, p95 := metrics.Stats()
	fmt.Printf("\nresults: total=%d booked=%d conflict=%d error=%d\n",
		metrics.Total, metrics.Booked, metrics.Conflict, metrics.Error)
	fmt.Printf("latency: avg=%s p50=%s p95=%s\n", avg, p50, p95)

	if metrics.Booked != int64(cfg.Rounds) {
		fmt.Printf("WARNING: expected exactly %d successful bookings (one per contested slot), got %d\n",
			cfg.Rounds, metrics.Booked)
		os.Exit(1)
	}
	fmt.Println("OK: every contested slot was booked exactly once")
}

// runRound fires all workers at the same slot simultaneously.
func runRound(client *http.Client, cfg SimConfig, metrics *Metrics, slot string) {
	var wg sync.WaitGroup
	start := make(chan struct{})

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		patient := cfg.PatientIDs[rand.Intn(len(cfg.PatientIDs))]

		go func(patientID string) {
			defer wg.Done()
			<-start

			body, _ := json.Marshal(map[string]string{
				"patient_id":   patientID,
				"doctor_id":    cfg.DoctorID,
				"procedure_id": cfg.Procedure,
				"room_id":      cfg.RoomID,
				"date":         cfg.Day,
				"time":         slot,
			})

			began := time.Now()
			resp, err := client.Post(cfg.APIBaseURL+"/appointments", "application/json", bytes.NewReader(body))
			if err != nil {
				metrics.Record(time.Since(began), 0)
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()

			metrics.Record(time.Since(began), resp.StatusCode)
		}(patient)
	}

	close(start)
	wg.Wait()

	log.Printf("round for %s %s done", cfg.Day, slot)
}

func slotTimes() []string {
	var times []string
	for h := 8; h <= 17; h++ {
		times = append(times, fmt.Sprintf("%02d:00", h))
		if h < 17 {
			times = append(times, fmt.Sprintf("%02d:30", h))
		}
	}
	return times
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
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
