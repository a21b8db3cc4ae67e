package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type loadMode string

const (
	modeCreate       loadMode = "create"
	modeCreateShip   loadMode = "create-ship"
	modeCreateCancel loadMode = "create-cancel"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	userID      int64
	productID   int64
	priceMinor  int64
	payment     string
	outputPath  string
}

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Statuses  map[string]int64 `json:"statuses"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	SuccessScenarios  int64                 `json:"success_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Steps             map[string]stepReport `json:"steps"`
}

type stepStats struct {
	calls     int64
	success   int64
	failed    int64
	statuses  map[string]int64
	latencies []float64
}

type collector struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

func newCollector() *collector {
	return &collector{steps: make(map[string]*stepStats)}
}

// record учитывает один вызов; status 0 означает сетевую ошибку.
func (c *collector) record(step string, latency time.Duration, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.steps[step]
	if !ok {
		stats = &stepStats{statuses: make(map[string]int64)}
		c.steps[step] = stats
	}

	stats.calls++
	if status >= 200 && status < 300 {
		stats.success++
	} else {
		stats.failed++
	}
	stats.statuses[statusLabel(status)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Steps:           make(map[string]stepReport, len(c.steps)),
	}

	if scenario := c.steps["scenario"]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.steps {
		statuses := make(map[string]int64, len(stats.statuses))
		for code, count := range stats.statuses {
			statuses[code] = count
		}
		result.Steps[name] = stepReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Statuses:  statuses,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	return result
}

func statusLabel(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status)
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var modeValue string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "admin API base URL")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-ship | create-cancel")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "cancel probability in percent for create-ship mode (0..100)")
	fs.Int64Var(&cfg.userID, "user-id", 1, "customer user id")
	fs.Int64Var(&cfg.productID, "product-id", 1, "ordered product id")
	fs.Int64Var(&cfg.priceMinor, "price-minor", 4590, "unit price in cents")
	fs.StringVar(&cfg.payment, "payment-method", "pix", "payment method")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("url is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.userID <= 0 || cfg.productID <= 0:
		return cfg, errors.New("user-id and product-id must be > 0")
	case cfg.priceMinor < 0:
		return cfg, errors.New("price-minor must be >= 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCreate, modeCreateShip, modeCreateCancel:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	result := execute(cfg, &http.Client{Timeout: cfg.timeout})
	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// execute прогоняет сценарии пулом воркеров и собирает отчёт.
func execute(cfg config, client *http.Client) report {
	startedAt := time.Now()
	col := newCollector()
	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if err := runScenario(client, cfg, id, col); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

type createdOrder struct {
	Data struct {
		ID          int64  `json:"id"`
		OrderNumber string `json:"order_number"`
	} `json:"data"`
}

func runScenario(client *http.Client, cfg config, index int, col *collector) (err error) {
	scenarioStart := time.Now()
	status := http.StatusOK
	defer func() {
		if err != nil && status < 300 {
			status = 0
		}
		col.record("scenario", time.Since(scenarioStart), status)
	}()

	body := map[string]any{
		"user_id":        cfg.userID,
		"payment_method": cfg.payment,
		"subtotal_minor": cfg.priceMinor,
		"total_minor":    cfg.priceMinor,
		"notes":          fmt.Sprintf("loadtest #%d", index),
		"items": []map[string]any{
			{"product_id": cfg.productID, "quantity": 1, "price_minor": cfg.priceMinor},
		},
	}

	var created createdOrder
	if status, err = call(client, cfg, "create_order", http.MethodPost, "/api/v1/orders", body, &created, col); err != nil {
		return err
	}
	if created.Data.ID == 0 || created.Data.OrderNumber == "" {
		status = 0
		return errors.New("create response returned empty order")
	}
	if cfg.mode == modeCreate {
		return nil
	}

	orderPath := fmt.Sprintf("/api/v1/orders/%d", created.Data.ID)
	if cfg.mode == modeCreateCancel || shouldCancelScenario(index, cfg.cancelRate) {
		status, err = call(client, cfg, "cancel_order", http.MethodPut, orderPath+"/status",
			map[string]any{"status": "canceled"}, nil, col)
		return err
	}

	if status, err = call(client, cfg, "update_status", http.MethodPut, orderPath+"/status",
		map[string]any{"status": "processing"}, nil, col); err != nil {
		return err
	}
	status, err = call(client, cfg, "add_tracking", http.MethodPut, orderPath+"/tracking",
		map[string]any{"tracking_code": "LT" + created.Data.OrderNumber}, nil, col)
	return err
}

// call отправляет JSON-запрос и записывает латентность шага.
func call(client *http.Client, cfg config, step, method, path string, body, out any, col *collector) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, cfg.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		col.record(step, time.Since(start), 0)
		return 0, err
	}
	defer resp.Body.Close()
	col.record(step, time.Since(start), resp.StatusCode)

	if resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, fmt.Errorf("%s: unexpected status %d", step, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("%s: decode response: %w", step, err)
		}
	}
	return resp.StatusCode, nil
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(w io.Writer, result report, cfg config) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode, runTarget(cfg), result.TotalScenarios, result.SuccessScenarios,
		result.FailedScenarios, result.ErrorRate)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	_, _ = fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min, result.ScenarioLatencyMs.Avg, result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95, result.ScenarioLatencyMs.P99, result.ScenarioLatencyMs.Max)

	names := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		if name != "scenario" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Steps[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
