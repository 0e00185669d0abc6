package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var smokeFlags struct {
	baseURL     string
	concurrency int
	requests    int
	timeout     time.Duration
	from, to    string
}

type smokeCase struct {
	name   string
	method string
	path   string
	body   any
	want   int
}

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Smoke-test a running API",
	Long:  "Checks health, catalog and a stage 1 quote, then replays the quote concurrently and reports latency and status counts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), smokeFlags.timeout)
		defer cancel()

		client := &http.Client{Timeout: 15 * time.Second}
		base := strings.TrimRight(smokeFlags.baseURL, "/")
		step1 := map[string]any{
			"from_address":   smokeFlags.from,
			"to_address":     smokeFlags.to,
			"pickup_time":    time.Now().Add(24 * time.Hour).Format("2006-01-02T15:04"),
			"duration_hours": 2,
		}
		cases := []smokeCase{
			{"liveness", http.MethodGet, "/health", nil, http.StatusOK},
			{"health", http.MethodGet, "/api/v2/health", nil, http.StatusOK},
			{"vehicles", http.MethodGet, "/api/v2/vehicles", nil, http.StatusOK},
			{"calculator config", http.MethodGet, "/api/v2/config/calculator", nil, http.StatusOK},
			{"step1", http.MethodPost, "/api/v2/calculator/step1", step1, http.StatusOK},
			{"step1 invalid duration", http.MethodPost, "/api/v2/calculator/step1",
				map[string]any{"from_address": "a", "to_address": "b", "pickup_time": "x", "duration_hours": 99}, http.StatusBadRequest},
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, c := range cases {
			status, elapsed, err := send(ctx, client, base, c)
			result := "PASS"
			if err != nil || status != c.want {
				result = "FAIL"
				failed++
			}
			fmt.Fprintf(out, "%-4s %-24s status=%d want=%d %s", result, c.name, status, c.want, elapsed.Round(time.Millisecond))
			if err != nil {
				fmt.Fprintf(out, " err=%v", err)
			}
			fmt.Fprintln(out)
		}

		var ok, limited, other atomic.Int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(smokeFlags.concurrency, 1))
		start := time.Now()
		for i := 0; i < smokeFlags.requests; i++ {
			g.Go(func() error {
				status, _, err := send(gctx, client, base, cases[4])
				switch {
				case err != nil:
					return err
				case status == http.StatusOK:
					ok.Add(1)
				case status == http.StatusTooManyRequests:
					limited.Add(1)
				default:
					other.Add(1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "smoke load")
		}
		fmt.Fprintf(out, "\n== Load ==\nrequests=%d ok=%d rate_limited=%d other=%d elapsed=%s\n",
			smokeFlags.requests, ok.Load(), limited.Load(), other.Load(), time.Since(start).Round(time.Millisecond))

		if failed > 0 {
			return eris.Errorf("%d smoke checks failed", failed)
		}
		return nil
	},
}

func send(ctx context.Context, client *http.Client, base string, c smokeCase) (int, time.Duration, error) {
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		if err != nil {
			return 0, 0, eris.Wrap(err, "encode body")
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, base+c.path, body)
	if err != nil {
		return 0, 0, eris.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, time.Since(start), eris.Wrapf(err, "%s %s", c.method, c.path)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, time.Since(start), nil
}

func init() {
	f := smokeCmd.Flags()
	f.StringVar(&smokeFlags.baseURL, "base-url", "http://localhost:8080", "API base URL")
	f.IntVar(&smokeFlags.concurrency, "concurrency", 4, "parallel quote requests")
	f.IntVar(&smokeFlags.requests, "requests", 20, "quote requests to replay")
	f.DurationVar(&smokeFlags.timeout, "timeout", time.Minute, "overall deadline")
	f.StringVar(&smokeFlags.from, "from", "Санкт-Петербург, Невский проспект 1", "pickup address")
	f.StringVar(&smokeFlags.to, "to", "Санкт-Петербург, Васильевский остров", "delivery address")
}
