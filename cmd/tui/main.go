package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	dto "github.com/prometheus/client_model/go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/dd0wney/cluso-vortex/pkg/config"
	"github.com/dd0wney/cluso-vortex/pkg/influence"
	"github.com/dd0wney/cluso-vortex/pkg/logging"
	"github.com/dd0wney/cluso-vortex/pkg/metrics"
	"github.com/dd0wney/cluso-vortex/pkg/vortex"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#FF00FF")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Padding(0, 2)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(1, 2).
			MarginRight(2)

	treeBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#FFFF00")).
			Padding(1, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

type view int

const (
	dashboardView view = iota
	edgesView
	probeView
	forestView
	metricsView
	numViews
)

var viewNames = []string{"Dashboard", "Edges", "Probe", "Forest", "Metrics"}

type keyMap struct {
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Solve    key.Binding
	Quit     key.Binding
	Up       key.Binding
	Down     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "prev view"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "probe"),
	),
	Solve: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "re-solve"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Solve, k.Enter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ShiftTab, k.Enter},
		{k.Up, k.Down, k.Solve},
		{k.Quit},
	}
}

// solution is the outcome of one influence build and force pass.
type solution struct {
	buildTime time.Duration
	forceTime time.Duration
	near      r3.Vec
	trefftz   r3.Vec
	rows      []table.Row
}

type model struct {
	lattice  *influence.Lattice
	builder  *influence.Builder
	fc       vortex.FlowCondition
	registry *metrics.Registry

	currentView view
	probeInput  textinput.Model
	edgeTable   table.Model
	help        help.Model
	keys        keyMap
	width       int
	height      int
	message     string
	messageErr  bool
	startTime   time.Time
	solving     bool
	solved      *solution
}

type tickMsg time.Time

type solvedMsg struct {
	sol *solution
	err error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// solveCmd assembles the influence matrix, updates loop velocities and
// computes edge forces off the UI goroutine.
func solveCmd(l *influence.Lattice, b *influence.Builder, fc vortex.FlowCondition) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		start := time.Now()
		m, err := b.Build(ctx, l.Edges(), l.Points(), fc)
		if err != nil {
			return solvedMsg{err: err}
		}
		if err := l.UpdateVelocities(m, fc); err != nil {
			return solvedMsg{err: err}
		}
		sol := &solution{buildTime: time.Since(start)}

		start = time.Now()
		if err := b.ComputeForces(ctx, l.Edges(), l, fc); err != nil {
			return solvedMsg{err: err}
		}
		sol.forceTime = time.Since(start)
		sol.near, sol.trefftz = l.TotalForces()
		sol.rows = edgeRows(l.Edges())
		return solvedMsg{sol: sol}
	}
}

func edgeRows(edges []*vortex.Edge) []table.Row {
	rows := make([]table.Row, 0, len(edges))
	for j, e := range edges {
		var flags []string
		if e.IsLeadingEdge {
			flags = append(flags, "LE")
		}
		if e.IsTrailingEdge {
			flags = append(flags, "TE")
		}
		if e.FineGrid {
			flags = append(flags, "fine")
		}
		wake := "-"
		for k := 0; k < 2; k++ {
			if e.DownWind(k) {
				wake = fmt.Sprintf("%d:%.2f", k+1, e.DownWindWeight(k))
			}
		}
		rows = append(rows, table.Row{
			strconv.Itoa(j),
			e.Kind.String(),
			strings.Join(flags, ","),
			fmt.Sprintf("%.4f", e.Length()),
			fmt.Sprintf("%.4f", e.Gamma),
			fmt.Sprintf("%.4g", r3.Norm(e.Forces())),
			wake,
		})
	}
	return rows
}

func initialModel(l *influence.Lattice, b *influence.Builder, fc vortex.FlowCondition, registry *metrics.Registry) model {
	ti := textinput.New()
	ti.Placeholder = "x y z"
	ti.CharLimit = 64
	ti.Width = 40

	columns := []table.Column{
		{Title: "Edge", Width: 6},
		{Title: "Kind", Width: 16},
		{Title: "Flags", Width: 12},
		{Title: "Length", Width: 8},
		{Title: "Gamma", Width: 9},
		{Title: "|F|", Width: 10},
		{Title: "Wake", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	return model{
		lattice:     l,
		builder:     b,
		fc:          fc,
		registry:    registry,
		currentView: dashboardView,
		probeInput:  ti,
		edgeTable:   t,
		help:        help.New(),
		keys:        keys,
		startTime:   time.Now(),
		solving:     true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		tickCmd(),
		solveCmd(m.lattice, m.builder, m.fc),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		m.registry.UpdateSystemMetrics()
		return m, tickCmd()

	case solvedMsg:
		m.solving = false
		if msg.err != nil {
			m.message = fmt.Sprintf("Solve failed: %v", msg.err)
			m.messageErr = true
			return m, nil
		}
		m.solved = msg.sol
		m.edgeTable.SetRows(msg.sol.rows)
		m.message = fmt.Sprintf("Solved %d edges in %s", len(msg.sol.rows), msg.sol.buildTime+msg.sol.forceTime)
		m.messageErr = false
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Tab):
			m.setView((m.currentView + 1) % numViews)

		case key.Matches(msg, m.keys.ShiftTab):
			m.setView((m.currentView + numViews - 1) % numViews)

		case key.Matches(msg, m.keys.Solve):
			if !m.solving {
				m.solving = true
				m.message = "Solving..."
				m.messageErr = false
				return m, solveCmd(m.lattice, m.builder, m.fc)
			}

		case key.Matches(msg, m.keys.Enter):
			if m.currentView == probeView && m.probeInput.Focused() {
				m.probe()
			}
		}
	}

	// Update focused component
	switch m.currentView {
	case probeView:
		m.probeInput, cmd = m.probeInput.Update(msg)
		cmds = append(cmds, cmd)
	case edgesView:
		m.edgeTable, cmd = m.edgeTable.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) setView(v view) {
	m.currentView = v
	if v == probeView {
		m.probeInput.Focus()
	} else {
		m.probeInput.Blur()
	}
}

// probe sums the velocity all edges induce at the typed point with their
// current circulations.
func (m *model) probe() {
	fields := strings.Fields(m.probeInput.Value())
	if len(fields) != 3 {
		m.message = "Probe needs three coordinates: x y z"
		m.messageErr = true
		return
	}
	var xyz [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			m.message = fmt.Sprintf("Bad coordinate %q: %v", f, err)
			m.messageErr = true
			return
		}
		xyz[i] = v
	}
	p := r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}

	var (
		q      r3.Vec
		counts [vortex.NumBranches]int
	)
	for _, e := range m.lattice.Edges() {
		v, br := e.InducedVelocityBranch(p, m.fc)
		q = r3.Add(q, r3.Scale(e.Gamma, v))
		counts[br]++
	}

	var tiers []string
	for br, n := range counts {
		if n > 0 {
			tiers = append(tiers, fmt.Sprintf("%s=%d", vortex.Branch(br), n))
		}
	}
	m.message = fmt.Sprintf("q(%.3g, %.3g, %.3g) = (%.5g, %.5g, %.5g)  [%s]",
		p.X, p.Y, p.Z, q.X, q.Y, q.Z, strings.Join(tiers, " "))
	m.messageErr = false
}

func (m model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Cluso Vortex - Lattice Inspector"))
	s.WriteString("\n\n")

	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	switch m.currentView {
	case dashboardView:
		s.WriteString(m.renderDashboard())
	case edgesView:
		s.WriteString(m.renderEdges())
	case probeView:
		s.WriteString(m.renderProbe())
	case forestView:
		s.WriteString(m.renderForest())
	case metricsView:
		s.WriteString(m.renderMetrics())
	}

	if m.message != "" {
		s.WriteString("\n\n")
		if m.messageErr {
			s.WriteString(errorStyle.Render("✗ " + m.message))
		} else {
			s.WriteString(successStyle.Render("✓ " + m.message))
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))

	return s.String()
}

func (m model) renderTabs() string {
	var renderedTabs []string
	for i, tab := range viewNames {
		if view(i) == m.currentView {
			renderedTabs = append(renderedTabs, activeTabStyle.Render(tab))
		} else {
			renderedTabs = append(renderedTabs, inactiveTabStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, renderedTabs...)
}

func (m model) renderDashboard() string {
	opts := m.lattice.Options()
	uptime := time.Since(m.startTime).Round(time.Second)

	latticeContent := fmt.Sprintf(`Lattice
───────────────
Span x chord: %.3g x %.3g
Panels:       %d x %d
Refinement:   %d
Loops:        %d
Edges:        %d
Uptime:       %s`,
		opts.Span, opts.Chord,
		opts.ChordPanels, opts.SpanPanels,
		opts.Refine,
		m.lattice.NumLoops(),
		len(m.lattice.Edges()),
		uptime,
	)

	solveContent := "Solution\n───────────────\nsolving..."
	if sol := m.solved; sol != nil {
		solveContent = fmt.Sprintf(`Solution
───────────────
Flow:     %s
Workers:  %d
Build:    %s
Forces:   %s
Lift:     %.5g
Drag (T): %.5g`,
			m.fc,
			m.builder.Workers(),
			sol.buildTime.Round(time.Microsecond),
			sol.forceTime.Round(time.Microsecond),
			sol.near.Z,
			sol.trefftz.X,
		)
	}

	return contentStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(latticeContent),
		statsBoxStyle.Render(solveContent),
	))
}

func (m model) renderEdges() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Edge Browser"))
	s.WriteString("\n\n")
	s.WriteString(m.edgeTable.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Navigate with ↑/↓ • ctrl+r to re-solve"))

	return contentStyle.Render(s.String())
}

func (m model) renderProbe() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Velocity Probe"))
	s.WriteString("\n\n")
	s.WriteString("Enter a field point:\n\n")
	s.WriteString(m.probeInput.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("Examples:\n"))
	s.WriteString(helpStyle.Render("  0.5 0 0.1     just above the first row\n"))
	s.WriteString(helpStyle.Render("  5 0 0         far wake\n"))
	s.WriteString(helpStyle.Render("  0 0 0         on the leading edge\n"))

	return contentStyle.Render(s.String())
}

// maxTreeLines bounds the forest view.
const maxTreeLines = 24

func (m model) renderForest() string {
	var s strings.Builder
	f := m.lattice.Forest()
	lines := 0

	for _, root := range f.Roots() {
		_ = f.Walk(root, func(id vortex.EdgeID, depth int) bool {
			if lines >= maxTreeLines {
				return false
			}
			e, _ := f.Edge(id)
			marker := "◉"
			if f.HasChildren(id) {
				marker = "◈"
			}
			fmt.Fprintf(&s, "%s%s edge %d  L=%.4f  Γ=%.4f\n",
				strings.Repeat("  ", depth), marker, id, e.Length(), e.Gamma)
			lines++
			return true
		})
		if lines >= maxTreeLines {
			fmt.Fprintf(&s, "\n... %d edges in %d trees\n", f.Len(), len(f.Roots()))
			break
		}
	}

	return contentStyle.Render(headerStyle.Render("Refinement Forest") + "\n\n" + treeBoxStyle.Render(s.String()))
}

func (m model) renderMetrics() string {
	var s strings.Builder

	s.WriteString(headerStyle.Render("Kernel Metrics"))
	s.WriteString("\n\n")

	var total float64
	counts := make([]float64, vortex.NumBranches)
	for br := range counts {
		c, err := m.registry.KernelEvaluationsTotal.GetMetricWithLabelValues(vortex.Branch(br).String())
		if err != nil {
			continue
		}
		var metric dto.Metric
		if err := c.Write(&metric); err != nil {
			continue
		}
		counts[br] = metric.GetCounter().GetValue()
		total += counts[br]
	}

	if total == 0 {
		s.WriteString(helpStyle.Render("No kernel evaluations yet"))
		return contentStyle.Render(s.String())
	}

	for br, n := range counts {
		share := n / total
		bar := strings.Repeat("█", int(math.Round(share*40)))
		fmt.Fprintf(&s, "  %-12s %12.0f %6.2f%% %s\n", vortex.Branch(br), n, 100*share, bar)
	}

	return contentStyle.Render(s.String())
}

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults built in)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	fc, err := cfg.FlowCondition()
	if err != nil {
		log.Fatalf("Invalid flow condition: %v", err)
	}

	// The alternate screen owns the terminal, so run quietly.
	logger := logging.NewNopLogger()
	registry := metrics.NewRegistry()

	lattice, err := influence.NewLattice(cfg.Lattice, cfg.Settings(), logger)
	if err != nil {
		log.Fatalf("Failed to build lattice: %v", err)
	}
	points := lattice.Points()
	lattice.SetCirculation(func(k int) float64 {
		if k >= cfg.Lattice.SpanPanels {
			return 0
		}
		y := 2 * points[k].Y / cfg.Lattice.Span
		return math.Sqrt(max(0, 1-y*y))
	})

	builder, err := influence.NewBuilder(influence.Options{Workers: cfg.Workers()}, logger, registry)
	if err != nil {
		log.Fatalf("Failed to create builder: %v", err)
	}

	p := tea.NewProgram(initialModel(lattice, builder, fc, registry), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}
