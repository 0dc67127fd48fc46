// Command loadtest sells one small flight to many concurrent buyers and
// checks that the number of tickets never exceeds the capacity.
//
//	go run ./cmd/loadtest -base http://localhost:8080 -admin-key $ADMIN_API_KEY -seats 50 -buyers 500
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-reservation/internal/logger"
)

type idResp struct {
	ID uint64 `json:"id"`
}

type authResp struct {
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
}

type flightResp struct {
	ID             uint64 `json:"id"`
	Capacity       int    `json:"capacity"`
	RemainingSeats int    `json:"remaining_seats"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type result struct {
	status  int
	code    string
	latency time.Duration
	err     error
}

func main() {
	base := flag.String("base", "http://localhost:8080", "API base URL")
	adminKey := flag.String("admin-key", os.Getenv("ADMIN_API_KEY"), "X-API-Key for admin routes")
	seats := flag.Int("seats", 50, "flight capacity")
	buyers := flag.Int("buyers", 500, "passengers buying concurrently")
	class := flag.String("class", "economy", "fare class to buy")
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Format: "text", Service: "loadtest"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client := resty.New().
		SetBaseURL(strings.TrimRight(*base, "/")).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")

	flightID, err := setup(ctx, client, *adminKey, *seats)
	if err != nil {
		log.WithError(err).Fatal("setup failed")
	}
	log.WithFields(logrus.Fields{"flight_id": flightID, "seats": *seats}).Info("flight ready")

	tokens, err := registerBuyers(ctx, client, *buyers)
	if err != nil {
		log.WithError(err).Fatal("registering buyers failed")
	}

	results := make([]result, len(tokens))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, tok := range tokens {
		wg.Add(1)
		go func(i int, tok string) {
			defer wg.Done()
			<-start
			results[i] = buy(ctx, client, tok, flightID, *class)
		}(i, tok)
	}
	began := time.Now()
	close(start)
	wg.Wait()
	elapsed := time.Since(began)

	var f flightResp
	if _, err := client.R().SetContext(ctx).SetResult(&f).Get(fmt.Sprintf("/v1/flights/%d", flightID)); err != nil {
		log.WithError(err).Fatal("reading flight failed")
	}

	if !report(log, results, f, elapsed) {
		os.Exit(1)
	}
}

func setup(ctx context.Context, c *resty.Client, adminKey string, seats int) (uint64, error) {
	var from, to idResp
	for _, ap := range []struct {
		out  *idResp
		city string
	}{{&from, "Origin"}, {&to, "Destination"}} {
		if err := post(ctx, c, "/v1/admin/airports", map[string]string{"X-API-Key": adminKey}, map[string]any{
			"name": ap.city + " " + randCode(3), "city": ap.city, "country": "ZZ", "iata_code": randCode(3),
		}, ap.out); err != nil {
			return 0, fmt.Errorf("create airport: %w", err)
		}
	}

	var airline authResp
	if err := post(ctx, c, "/v1/auth/airlines/register", nil, map[string]any{
		"name": "Load Test Air", "iata_code": randCode(2), "country": "ZZ",
		"email": "airline-" + uuid.NewString() + "@loadtest.invalid", "password": "loadtest-password",
	}, &airline); err != nil {
		return 0, fmt.Errorf("register airline: %w", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + airline.Access.Token}

	var aircraft idResp
	if err := post(ctx, c, "/v1/aircraft", auth, map[string]any{"model": "LT-1", "total_seats": seats}, &aircraft); err != nil {
		return 0, fmt.Errorf("create aircraft: %w", err)
	}

	dep := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	var flight idResp
	if err := post(ctx, c, "/v1/flights", auth, map[string]any{
		"aircraft_id":          aircraft.ID,
		"departure_airport_id": from.ID,
		"arrival_airport_id":   to.ID,
		"departure_at":         dep,
		"arrival_at":           dep.Add(2 * time.Hour),
		"economy_cents":        9900,
		"business_cents":       29900,
		"first_cents":          59900,
	}, &flight); err != nil {
		return 0, fmt.Errorf("create flight: %w", err)
	}
	return flight.ID, nil
}

// registerBuyers signs up n passengers with bounded parallelism.
func registerBuyers(ctx context.Context, c *resty.Client, n int) ([]string, error) {
	tokens := make([]string, n)
	errs := make([]error, n)
	sem := make(chan struct{}, 32)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			var out authResp
			errs[i] = post(ctx, c, "/v1/auth/passengers/register", nil, map[string]any{
				"name": "Buyer", "surname": fmt.Sprint(i),
				"email": "buyer-" + uuid.NewString() + "@loadtest.invalid", "password": "loadtest-password",
			}, &out)
			tokens[i] = out.Access.Token
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return tokens, nil
}

func buy(ctx context.Context, c *resty.Client, token string, flightID uint64, class string) result {
	var apiErr apiError
	began := time.Now()
	resp, err := c.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(map[string]any{"class": class}).
		SetError(&apiErr).
		Post(fmt.Sprintf("/v1/flights/%d/tickets", flightID))
	r := result{latency: time.Since(began), err: err}
	if err == nil {
		r.status = resp.StatusCode()
		r.code = apiErr.Error.Code
	}
	return r
}

func post(ctx context.Context, c *resty.Client, path string, headers map[string]string, body, out any) error {
	var apiErr apiError
	resp, err := c.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(body).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s: %d %s %s", path, resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Message)
	}
	return nil
}

// report prints the outcome and returns false when the flight was oversold
// or the counters do not add up.
func report(log logrus.FieldLogger, results []result, f flightResp, elapsed time.Duration) bool {
	var sold, exhausted, other int
	codes := map[string]int{}
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		latencies = append(latencies, r.latency)
		switch {
		case r.err != nil:
			other++
			codes["transport"]++
		case r.status == 201:
			sold++
		case r.code == "SEATS_EXHAUSTED":
			exhausted++
		default:
			other++
			codes[fmt.Sprintf("%d %s", r.status, r.code)]++
		}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	ok := sold <= f.Capacity && f.RemainingSeats == f.Capacity-sold
	log.WithFields(logrus.Fields{
		"requests":        len(results),
		"sold":            sold,
		"seats_exhausted": exhausted,
		"other_errors":    other,
		"capacity":        f.Capacity,
		"remaining":       f.RemainingSeats,
		"elapsed":         elapsed.Round(time.Millisecond).String(),
		"p50":             percentile(latencies, 50).String(),
		"p95":             percentile(latencies, 95).String(),
		"p99":             percentile(latencies, 99).String(),
	}).Info("purchase run finished")
	for k, n := range codes {
		log.WithField("count", n).Warn("unexpected outcome: " + k)
	}
	if !ok {
		log.WithFields(logrus.Fields{"sold": sold, "capacity": f.Capacity, "remaining": f.RemainingSeats}).
			Error("inventory mismatch: flight oversold or seats leaked")
	}
	return ok
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := (len(sorted)*p+99)/100 - 1
	if idx < 0 {
		idx = 0
	}
	return sorted[idx].Round(time.Millisecond)
}

func randCode(n int) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
