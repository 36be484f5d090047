package main

import (
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/teachify/teachify"
	"github.com/teachify/teachify/credentials"
	"github.com/teachify/teachify/gateway"
	"github.com/teachify/teachify/gateway/gatewaytest"
	"go.uber.org/zap"
)

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Measure login, restore and navigation latency",
	Long: `Measure login, restore and navigation latency against an in-process fake
API. Every simulated device keeps its credentials in Redis; without
--redis-addr an embedded miniredis is used.

	teachify loadtest --devices 500 --concurrency 64 --ops 200000
`,
	Args: cobra.NoArgs,
	RunE: runLoadtest,
}

var loadtestFlags struct {
	devices     int
	concurrency int
	ops         int
	prefix      string
}

var loadtestPaths = []string{
	"/", "/login", "/register", "/tutors", "/profile",
	"/dashboard", "/dashboard/calendar", "/dashboard/students", "/dashboard/stats",
	"/dashboard/profile", "/nowhere",
}

func init() {
	loadtestCmd.Flags().IntVar(&loadtestFlags.devices, "devices", 200, "number of simulated devices")
	loadtestCmd.Flags().IntVar(&loadtestFlags.concurrency, "concurrency", 64, "number of concurrent workers")
	loadtestCmd.Flags().IntVar(&loadtestFlags.ops, "ops", 100000, "navigations in the navigate phase")
	loadtestCmd.Flags().StringVar(&loadtestFlags.prefix, "prefix", "tload", "credential key prefix")
	rootCmd.AddCommand(loadtestCmd)
}

func runLoadtest(cmd *cobra.Command, _ []string) error {
	if loadtestFlags.devices <= 0 || loadtestFlags.concurrency <= 0 || loadtestFlags.ops <= 0 {
		return fmt.Errorf("devices, concurrency, and ops must be > 0")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	rdb, cleanup, err := loadtestRedis(out)
	if err != nil {
		return err
	}
	defer cleanup()

	api := gatewaytest.New()
	usernames := make([]string, loadtestFlags.devices)
	for i := range usernames {
		role := teachify.RoleTeacher
		if i%2 == 1 {
			role = teachify.RoleStudent
		}
		usernames[i] = fmt.Sprintf("user%d", i)
		if err := api.Seed(usernames[i], "secret", role); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	gw, err := gateway.New(teachify.GatewayConfig{
		BaseURL: "http://" + ln.Addr().String() + gatewaytest.BasePath,
		Timeout: 10 * time.Second,
	}, gateway.WithHTTPClient(&http.Client{
		Transport: &http.Transport{MaxIdleConnsPerHost: loadtestFlags.concurrency},
	}))
	if err != nil {
		return err
	}

	open := func(i int) (*teachify.Client, error) {
		store := credentials.NewRedis(rdb, loadtestFlags.prefix, fmt.Sprintf("device-%d", i), 0)
		c, err := teachify.New().
			WithGateway(gw).
			WithCredentialStore(store).
			WithLatencyHistograms(true).
			WithLogger(zap.NewNop()).
			Build()
		if err != nil {
			return nil, err
		}
		return c, c.Bootstrap(ctx)
	}

	clients := make([]*teachify.Client, loadtestFlags.devices)
	for i := range clients {
		if clients[i], err = open(i); err != nil {
			return err
		}
	}

	loginStats := runPhase(len(clients), loadtestFlags.concurrency, func(_ *rand.Rand, i int) error {
		return clients[i].Login(ctx, usernames[i], "secret")
	})

	for _, c := range clients {
		_ = c.Close()
	}
	restoreStats := runPhase(len(clients), loadtestFlags.concurrency, func(_ *rand.Rand, i int) error {
		c, err := open(i)
		if err != nil {
			return err
		}
		clients[i] = c
		if !c.Session().Authenticated() {
			return fmt.Errorf("device-%d not restored", i)
		}
		return nil
	})
	defer func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}()

	navigateStats := runPhase(loadtestFlags.ops, loadtestFlags.concurrency, func(r *rand.Rand, _ int) error {
		c := clients[r.Intn(len(clients))]
		if c == nil {
			return fmt.Errorf("device missing")
		}
		c.Navigate(ctx, loadtestPaths[r.Intn(len(loadtestPaths))])
		return nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "login", loginStats)
	printStats(out, "restore", restoreStats)
	printStats(out, "navigate", navigateStats)
	return nil
}

func loadtestRedis(out io.Writer) (redis.UniversalClient, func(), error) {
	addr := flags.redisAddr
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase performs ops calls of op across concurrency workers. Each call
// receives a worker-local rand and its operation index.
func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

