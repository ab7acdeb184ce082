// Command sample_target runs a small HTTP server for exercising
// volleyfire by hand. It can inject latency, random failures and fixed
// status codes.
//
// Usage:
//
//	go run ./scripts/testservers/sample_target -port 8080 -latency 50ms -fail-rate 0.1
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	latency := flag.Duration("latency", 0, "Fixed delay before responding")
	jitter := flag.Duration("jitter", 0, "Random extra delay, uniform in [0, jitter)")
	failRate := flag.Float64("fail-rate", 0, "Fraction of requests answered with the failure status")
	failStatus := flag.Int("fail-status", http.StatusInternalServerError, "Status code used for injected failures")
	flag.Parse()

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if *latency > 0 {
			time.Sleep(*latency)
		}
		if *jitter > 0 {
			time.Sleep(time.Duration(rnd.Int63n(int64(*jitter))))
		}

		_, _ = io.Copy(io.Discard, r.Body)

		if *failRate > 0 && rnd.Float64() < *failRate {
			http.Error(w, "injected failure", *failStatus)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"method":%q,"path":%q}`+"\n", r.Method, r.URL.Path)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("sample target listening on %s (latency=%s jitter=%s fail-rate=%.2f)", addr, *latency, *jitter, *failRate)
	log.Fatal(http.ListenAndServe(addr, mux))
}
