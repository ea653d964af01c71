package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"vrpsolve/internal/buildinfo"
	"vrpsolve/internal/config"
	"vrpsolve/internal/construct"
	"vrpsolve/internal/metrics"
	"vrpsolve/internal/publish"
	"vrpsolve/internal/solver"
	"vrpsolve/internal/store"
	"vrpsolve/internal/vrp"
)

// SysInfo describes the host the run was produced on.
type SysInfo struct {
	Platform string `json:"platform"`
	CPU      string `json:"cpu"`
	RAM      string `json:"ram"`
}

// Summary is the one-line JSON result written to stdout.
type Summary struct {
	Instance string  `json:"Instance"`
	Time     float64 `json:"Time"`
	Result   float64 `json:"Result"`
	Solution string  `json:"Solution"`
	System   SysInfo `json:"System"`
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		workers     = flag.Int("workers", 0, "concurrent runs (0 = NumCPU)")
		maxIters    = flag.Int("iters", 0, "iteration cap per run (0 = uncapped)")
		timeBudget  = flag.Duration("time", 0, "wall-time cap per run")
		seed        = flag.Int64("seed", 0, "RNG seed (0 = time-based)")
		constructor = flag.String("constructor", "", "construction cascade (cw-sweep, sweep-cw, auto)")
		outFile     = flag.String("out", "", "write the best solution to this file")
		warmStart   = flag.String("warm", "", "solution file to start from")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(buildinfo.String())
		return
	}
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <instance-file>", os.Args[0])
	}
	instPath := flag.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workers":
			cfg.Workers = *workers
		case "iters":
			cfg.MaxIters = *maxIters
		case "time":
			cfg.TimeBudget = *timeBudget
		case "seed":
			cfg.Seed = *seed
		case "constructor":
			cfg.Constructor = *constructor
		}
	})
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	inst, err := vrp.LoadInstance(instPath)
	if err != nil {
		log.Fatalf("loading %s: %v", instPath, err)
	}
	instName := strings.TrimSuffix(filepath.Base(instPath), filepath.Ext(instPath))

	// The constructor "auto" leaves Construct unset so each worker gets the
	// per-index cascade alternation.
	var cascade construct.Cascade
	if cfg.Constructor != "auto" {
		cascade, err = construct.ByName(cfg.Constructor)
		if err != nil {
			log.Fatalf("constructor: %v", err)
		}
	}

	var initial *vrp.Solution
	if *warmStart != "" {
		initial, err = loadWarmStart(inst, *warmStart)
		if err != nil {
			log.Fatalf("warm start %s: %v", *warmStart, err)
		}
	}

	if cfg.MetricsAddr != "" {
		metrics.RegisterDefault()
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Printf("metrics listener: %v", err)
			}
		}()
	}

	var archive store.Store = store.NewMemory()
	if cfg.DatabaseURL != "" {
		archive, err = store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("store: %v", err)
		}
	}
	defer archive.Close()

	var pub publish.Publisher = publish.NewBroker()
	if cfg.RedisURL != "" {
		pub, err = publish.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatalf("publisher: %v", err)
		}
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	best, results, err := solver.MultiStart(ctx, inst, solver.MultiStartParams{
		Workers: cfg.Workers,
		Base: solver.SolveParams{
			MaxIters:    cfg.MaxIters,
			TimeBudget:  cfg.TimeBudget,
			FracDropped: cfg.FracDropped,
			Patience:    cfg.Patience,
			Construct:   cascade,
			Initial:     initial,
			Seed:        cfg.Seed,
		},
		OnGlobalBest: func(runID string, sol *vrp.Solution, iter int) {
			cost := sol.Cost()
			log.Printf("run %s: new best %.2f at iteration %d", runID, cost, iter)
			metrics.BestCost.WithLabelValues(instName).Set(cost)
			pub.Publish(instName, publish.Event{
				RunID:     runID,
				Instance:  instName,
				Cost:      cost,
				Iteration: iter,
				At:        time.Now().UTC(),
			})
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Fatalf("solve: %v", err)
	}

	totalIters := 0
	for w, r := range results {
		if r.Stats == nil {
			continue
		}
		totalIters += r.Stats.Iterations
		label := strconv.Itoa(w)
		metrics.Iterations.WithLabelValues(label).Add(float64(r.Stats.Iterations))
		metrics.Improvements.WithLabelValues(label).Add(float64(len(r.Stats.Improvements)))
		metrics.Restarts.WithLabelValues(label).Add(float64(len(r.Stats.Restarts)))
		metrics.RepairFailures.WithLabelValues(label).Add(float64(r.Stats.RepairFailures))
		for op, w := range r.Stats.DestroyWeights {
			metrics.OperatorWeight.WithLabelValues(label, "destroy", strconv.Itoa(op)).Set(w)
		}
		for op, w := range r.Stats.RepairWeights {
			metrics.OperatorWeight.WithLabelValues(label, "repair", strconv.Itoa(op)).Set(w)
		}
	}

	id, err := archive.SaveRunResult(ctx, store.RunResult{
		Instance:    instName,
		Cost:        best.Cost(),
		ElapsedSec:  elapsed.Seconds(),
		Iterations:  totalIters,
		Constructor: cfg.Constructor,
		Routes:      best.String(),
	})
	if err != nil {
		log.Printf("archiving run: %v", err)
	} else {
		log.Printf("archived run %s", id)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(best.FileString()), 0o644); err != nil {
			log.Fatalf("writing %s: %v", *outFile, err)
		}
	}

	summary := Summary{
		Instance: instName,
		Time:     round2(elapsed.Seconds()),
		Result:   round2(best.Cost()),
		Solution: best.String(),
		System:   sysInfo(),
	}
	out, err := json.Marshal(summary)
	if err != nil {
		log.Fatalf("encoding summary: %v", err)
	}
	fmt.Println(string(out))
}

// loadWarmStart parses a solution file (the -out format) back into a
// feasible starting solution.
func loadWarmStart(inst *vrp.Instance, path string) (*vrp.Solution, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.SplitN(string(data), "\n", 2)
	if len(lines) < 2 {
		return nil, fmt.Errorf("missing route lines")
	}
	sol, err := vrp.ParseSolution(inst, lines[1])
	if err != nil {
		return nil, err
	}
	if err := sol.Validate(); err != nil {
		return nil, err
	}
	return sol, nil
}

func sysInfo() SysInfo {
	info := SysInfo{}
	if h, err := host.Info(); err == nil {
		info.Platform = h.Platform
	}
	if c, err := cpu.Info(); err == nil && len(c) > 0 {
		info.CPU = c[0].ModelName
	}
	if m, err := mem.VirtualMemory(); err == nil {
		info.RAM = fmt.Sprintf("%d GB", m.Total/1024/1024/1024)
	}
	return info
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
