package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-vortex/pkg/config"
	"github.com/dd0wney/cluso-vortex/pkg/influence"
	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/metrics"
	"github.com/dd0wney/cluso-vortex/pkg/server"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Width(22)

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)
)

type runStats struct {
	workers  int
	duration time.Duration
	entries  int
}

func (s runStats) throughput() float64 {
	return float64(s.entries) / s.duration.Seconds()
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults built in)")
	workers := flag.Int("workers", 0, "Parallel worker count (0 = config or CPU count)")
	spanPanels := flag.Int("span", 0, "Spanwise panels (0 = config)")
	chordPanels := flag.Int("chord", 0, "Chordwise panels (0 = config)")
	refine := flag.Int("refine", -1, "Edge refinement levels (-1 = config)")
	mach := flag.Float64("mach", -1, "Free-stream Mach number (-1 = config)")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for a signal")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = *loaded
	}
	if *workers > 0 {
		cfg.Influence.Workers = *workers
	}
	if *spanPanels > 0 {
		cfg.Lattice.SpanPanels = *spanPanels
	}
	if *chordPanels > 0 {
		cfg.Lattice.ChordPanels = *chordPanels
	}
	if *refine >= 0 {
		cfg.Lattice.Refine = *refine
	}
	if *mach >= 0 {
		cfg.Flow.Mach = *mach
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Logger(os.Stderr).With(logging.Component("benchmark"))
	registry := metrics.NewRegistry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		srv    *server.MetricsServer
		served = make(chan error, 1)
	)
	if *metricsAddr != "" {
		srv = server.NewMetricsServer(*metricsAddr, registry, logger)
		if err := srv.Listen(); err != nil {
			logger.Error("metrics server failed", logging.Error(err))
			os.Exit(1)
		}
		go func() { served <- srv.Serve(ctx) }()
	}

	if err := run(ctx, &cfg, logger, registry); err != nil {
		logger.Error("benchmark failed", logging.Error(err))
		os.Exit(1)
	}

	if srv != nil {
		fmt.Printf("\nServing metrics on http://%s/metrics, interrupt to exit\n", srv.Addr())
		if err := <-served; err != nil {
			logger.Error("metrics server stopped", logging.Error(err))
			os.Exit(1)
		}
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, registry *metrics.Registry) error {
	fc, err := cfg.FlowCondition()
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Vortex Influence Benchmark"))
	fmt.Printf("Building %dx%d lattice (refine %d) at %s\n",
		cfg.Lattice.ChordPanels, cfg.Lattice.SpanPanels, cfg.Lattice.Refine, fc)

	lattice, err := influence.NewLattice(cfg.Lattice, cfg.Settings(), logger)
	if err != nil {
		return err
	}
	points, edges := lattice.Points(), lattice.Edges()
	span := cfg.Lattice.Span
	lattice.SetCirculation(func(k int) float64 {
		// elliptic loading on the leading row only
		if k >= cfg.Lattice.SpanPanels {
			return 0
		}
		y := 2 * points[k].Y / span
		return math.Sqrt(max(0, 1-y*y))
	})

	sequential, seqMatrix, err := build(ctx, 1, lattice, fc, logger, registry)
	if err != nil {
		return err
	}
	parallel, parMatrix, err := build(ctx, cfg.Workers(), lattice, fc, logger, registry)
	if err != nil {
		return err
	}
	diff := maxAbsDiff(seqMatrix, parMatrix)

	b, err := influence.NewBuilder(influence.Options{Workers: cfg.Workers()}, logger, registry)
	if err != nil {
		return err
	}
	if err := lattice.UpdateVelocities(parMatrix, fc); err != nil {
		return err
	}
	start := time.Now()
	if err := b.ComputeForces(ctx, edges, lattice, fc); err != nil {
		return err
	}
	forceTime := time.Since(start)
	near, trefftz := lattice.TotalForces()

	registry.UpdateSystemMetrics()

	speedup := sequential.duration.Seconds() / parallel.duration.Seconds()
	rows := [][2]string{
		{"Loops x edges", fmt.Sprintf("%d x %d", len(points), len(edges))},
		{"CPU cores", fmt.Sprintf("%d", runtime.NumCPU())},
		{"Sequential", fmt.Sprintf("%s (%.0f entries/s)", sequential.duration.Round(time.Microsecond), sequential.throughput())},
		{fmt.Sprintf("Parallel (%d)", parallel.workers), fmt.Sprintf("%s (%.0f entries/s)", parallel.duration.Round(time.Microsecond), parallel.throughput())},
		{"Max |seq - par|", fmt.Sprintf("%.3g", diff)},
		{"Forces", forceTime.Round(time.Microsecond).String()},
		{"Near-field force", fmt.Sprintf("(%.4g, %.4g, %.4g)", near.X, near.Y, near.Z)},
		{"Trefftz force", fmt.Sprintf("(%.4g, %.4g, %.4g)", trefftz.X, trefftz.Y, trefftz.Z)},
	}

	var body strings.Builder
	for _, r := range rows {
		body.WriteString(labelStyle.Render(r[0]))
		body.WriteString(r[1])
		body.WriteString("\n")
	}
	verdict := warnStyle.Render(fmt.Sprintf("Speedup %.2fx", speedup))
	if speedup >= 2 {
		verdict = goodStyle.Render(fmt.Sprintf("Speedup %.2fx", speedup))
	}
	body.WriteString(verdict)
	fmt.Println(boxStyle.Render(body.String()))
	return nil
}

func build(ctx context.Context, workers int, l *influence.Lattice, fc vortex.FlowCondition, logger logging.Logger, registry *metrics.Registry) (runStats, *influence.Matrix, error) {
	b, err := influence.NewBuilder(influence.Options{Workers: workers}, logger, registry)
	if err != nil {
		return runStats{}, nil, err
	}
	start := time.Now()
	m, err := b.Build(ctx, l.Edges(), l.Points(), fc)
	if err != nil {
		return runStats{}, nil, err
	}
	rows, cols := m.Dims()
	return runStats{workers: workers, duration: time.Since(start), entries: rows * cols}, m, nil
}

func maxAbsDiff(a, b *influence.Matrix) float64 {
	rows, cols := a.Dims()
	var worst float64
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			qa, qb := a.At(i, j), b.At(i, j)
			worst = max(worst, math.Abs(qa.X-qb.X), math.Abs(qa.Y-qb.Y), math.Abs(qa.Z-qb.Z))
		}
	}
	return worst
}
