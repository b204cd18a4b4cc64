package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Provisioning load tester. Every request onboards a uniquely named school, so
// a run leaves real rows and tenant databases behind; point it at a disposable
// environment.
func main() {
	targetURL := flag.String("url", "http://localhost:8080/api/v1/schools", "Provisioning endpoint")
	concurrency := flag.Int("c", 4, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 10, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting provisioning load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var createdCount, throttledCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *rps)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 90 * time.Second, // provisioning creates a database
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					run := uuid.NewString()[:8]
					payload := fmt.Sprintf(`{
						"school_name": "Load Test School %s",
						"school_email": "office-%s@loadtest.example",
						"admin_name": "Load Tester",
						"admin_email": "admin-%s@loadtest.example",
						"admin_password": "loadtest-password"
					}`, run, run, run)

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue
					}
					req.Header.Set("Content-Type", "application/json")

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					switch resp.StatusCode {
					case http.StatusCreated:
						createdCount.Add(1)
					case http.StatusTooManyRequests:
						throttledCount.Add(1)
					default:
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	total := createdCount.Load() + throttledCount.Load() + errorCount.Load()
	actualRPS := float64(total) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", total)
	log.Printf("Schools Created (201): %d", createdCount.Load())
	log.Printf("Rate Limited (429): %d", throttledCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
