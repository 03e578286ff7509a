// Command race-demo fires concurrent transfers between two wallets of a
// running API and reports how many were accepted. With a 100.00 balance and
// ten 20.00 requests exactly five should succeed.
package main

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/wallet-transfer/internal/logging"
)

type options struct {
	baseURL  string
	from     string
	to       string
	amount   string
	requests int
	timeout  time.Duration
}

type outcome struct {
	index  int
	status int
	body   string
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	flag.StringVar(&opts.from, "from", "", "source wallet id")
	flag.StringVar(&opts.to, "to", "", "destination wallet id")
	flag.StringVar(&opts.amount, "amount", "20.00", "amount per transfer")
	flag.IntVar(&opts.requests, "requests", 10, "number of concurrent transfers")
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	logging.Init("race-demo", "info", "development")

	if opts.from == "" || opts.to == "" || opts.requests < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	outcomes, err := run(ctx, http.DefaultClient, opts)
	if err != nil {
		slog.Error("race demo failed", "error", err)
		os.Exit(1)
	}

	summarize(os.Stdout, outcomes)
}

// summarize prints every outcome in request order, then the count per status
// code in ascending code order.
func summarize(w io.Writer, outcomes []outcome) {
	slices.SortFunc(outcomes, func(a, b outcome) int { return cmp.Compare(a.index, b.index) })

	counts := make(map[int]int)
	for _, o := range outcomes {
		counts[o.status]++
		fmt.Fprintf(w, "request %2d: %d %s\n", o.index, o.status, o.body)
	}
	fmt.Fprintln(w, "---")
	for _, status := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "%d %s: %d\n", status, http.StatusText(status), counts[status])
	}
}

// run sends opts.requests transfers at once. Every goroutine waits on a
// shared barrier so the requests reach the server together.
func run(ctx context.Context, client *http.Client, opts options) ([]outcome, error) {
	payload, err := json.Marshal(map[string]string{
		"from_wallet_id": opts.from,
		"to_wallet_id":   opts.to,
		"amount":         opts.amount,
	})
	if err != nil {
		return nil, fmt.Errorf("run: encode: %w", err)
	}

	var (
		mu       sync.Mutex
		outcomes = make([]outcome, 0, opts.requests)
		start    = make(chan struct{})
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := range opts.requests {
		g.Go(func() error {
			<-start
			o, err := send(ctx, client, opts.baseURL+"/api/v1/transfers", payload)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			o.index = i
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
			return nil
		})
	}
	close(start)

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return outcomes, nil
}

func send(ctx context.Context, client *http.Client, url string, payload []byte) (outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return outcome{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcome{}, err
	}
	return outcome{status: resp.StatusCode, body: string(bytes.TrimSpace(body))}, nil
}
