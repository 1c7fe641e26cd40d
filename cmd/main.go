package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/edp1096/lblmc/internal/consts"
	"github.com/edp1096/lblmc/pkg/analysis"
	"github.com/edp1096/lblmc/pkg/circuit"
	"github.com/edp1096/lblmc/pkg/config"
	"github.com/edp1096/lblmc/pkg/device"
	"github.com/edp1096/lblmc/pkg/generator"
	"github.com/edp1096/lblmc/pkg/metrics"
	"github.com/edp1096/lblmc/pkg/netlist"
	"github.com/edp1096/lblmc/pkg/util"
)

const usage = `Usage: lblmc [flags] <netlist-file | project.yaml>

Generates an LB-LMC solver header (<name>.hpp) from a netlist. A .yaml or
.yml argument is a project file listing the subsystem netlists of a
decomposed system; one header is written per subsystem.

Flags:
`

var flagsWithValue = map[string]bool{
	"-config": true, "--config": true,
	"-out": true, "--out": true,
	"-metrics": true, "--metrics": true,
	"-simulate": true, "--simulate": true,
	"-dt": true, "--dt": true,
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type report struct {
	path  string
	stats generator.Stats
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet(consts.AppName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		showHelp    bool
		showAbout   bool
		configPath  string
		outDir      string
		metricsPath string
		verbose     bool
		steps       int
		timeStep    float64
	)
	fs.BoolVar(&showHelp, "help", false, "show this help")
	fs.BoolVar(&showAbout, "about", false, "show version information")
	fs.StringVar(&configPath, "config", "", "generator settings (YAML)")
	fs.StringVar(&outDir, "out", "", "output directory (overrides the config)")
	fs.StringVar(&metricsPath, "metrics", "", "write generation metrics to this textfile")
	fs.BoolVar(&verbose, "v", false, "debug logging")
	fs.IntVar(&steps, "simulate", 0, "also step the generated solver this many times and write <name>.csv")
	fs.Float64Var(&timeStep, "dt", 1, "time step used to label the simulation TIME column")

	printUsage := func() {
		fmt.Fprint(stdout, usage)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		fs.SetOutput(stderr)
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	if showAbout {
		fmt.Fprintf(stdout, "%s %s - Latency-Based Linear Multi-step Compound solver generator\n", consts.AppName, consts.AppVersion)
		return nil
	}
	if showHelp || fs.NArg() != 1 {
		printUsage()
		return nil
	}
	input := fs.Arg(0)

	cfg := config.Default()
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = c
	}

	project := isProjectFile(input)
	if project {
		p, err := config.Load(input)
		if err != nil {
			return err
		}
		if configPath == "" {
			cfg = p
		} else {
			cfg.Subsystems = p.Subsystems
		}
		if len(cfg.Subsystems) == 0 {
			return fmt.Errorf("%s: no subsystems listed", input)
		}
	}

	if outDir != "" {
		cfg.OutputDir = outDir
	}
	if metricsPath != "" {
		cfg.MetricsFile = metricsPath
	}
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	opts := cfg.Options(logger)
	reg := device.NewRegistry(logger)

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	start := time.Now()
	var (
		reports []report
		links   []circuit.Link
	)
	if project {
		var nets []*netlist.Netlist
		for _, path := range cfg.Subsystems {
			n, err := netlist.Load(path)
			if err != nil {
				return err
			}
			nets = append(nets, n)
		}
		p, err := circuit.BuildProject(nets, reg, opts)
		if err != nil {
			return err
		}
		paths, err := p.Generate(cfg.OutputDir)
		if err != nil {
			return err
		}
		for i, c := range p.Circuits {
			reports = append(reports, report{path: paths[i], stats: c.Engine().Stats()})
		}
		links = p.Links()
		if steps > 0 {
			logger.Warn("simulation skipped for decomposed systems")
		}
	} else {
		n, err := netlist.Load(input)
		if err != nil {
			return err
		}
		c, err := circuit.New(n, reg, opts)
		if err != nil {
			return err
		}
		path, err := c.Generate(cfg.OutputDir)
		if err != nil {
			return err
		}
		reports = append(reports, report{path: path, stats: c.Engine().Stats()})

		if steps > 0 {
			csvPath, err := simulate(c, steps, timeStep, cfg.OutputDir)
			if err != nil {
				return err
			}
			logger.Info("simulation written", "file", csvPath, "steps", steps)
		}
	}

	if cfg.MetricsFile != "" {
		m := metrics.NewRegistry()
		for _, r := range reports {
			m.Observe(strings.TrimSuffix(filepath.Base(r.path), consts.HeaderExt), r.stats)
		}
		if err := m.WriteFile(cfg.MetricsFile); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		logger.Info("metrics written", "file", cfg.MetricsFile)
	}

	printSummary(stdout, reports, links, time.Since(start))
	return nil
}

func simulate(c *circuit.Circuit, steps int, timeStep float64, dir string) (string, error) {
	tr := analysis.NewTransient(steps, timeStep)
	if err := tr.Setup(c); err != nil {
		return "", err
	}
	if err := tr.Execute(); err != nil {
		return "", fmt.Errorf("%s: simulating: %w", c.Name(), err)
	}

	path := filepath.Join(dir, c.Name()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := tr.WriteCSV(f); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

func isProjectFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func printSummary(w io.Writer, reports []report, links []circuit.Link, elapsed time.Duration) {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FFFF"))
	label := r.NewStyle().Foreground(lipgloss.Color("#666666"))
	box := r.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#00FF00")).
		Padding(0, 1)

	var blocks []string
	for _, rep := range reports {
		s := rep.stats
		lines := []string{
			title.Render(rep.path),
			label.Render("unknowns   ") + util.FormatCount(s.Unknowns, "node"),
			label.Render("sources    ") + util.FormatCount(s.Sources, "slot"),
			label.Render("components ") + fmt.Sprint(s.Components),
			label.Render("solve      ") + fmt.Sprintf("%s, %d pruned", util.FormatCount(s.SolveTerms, "term"), s.PrunedTerms),
			label.Render("time       ") + util.FormatValueFactor(s.Duration.Seconds(), "s"),
		}
		blocks = append(blocks, box.Render(strings.Join(lines, "\n")))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, blocks...))

	for _, l := range links {
		fmt.Fprintln(w, l.String())
	}
	fmt.Fprintf(w, "%s in %s\n", util.FormatCount(len(reports), "header"), util.FormatValueFactor(elapsed.Seconds(), "s"))
}

// reorderArgs moves flags ahead of the positional argument so both
// "lblmc -v rc.net" and "lblmc rc.net -v" work.
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
