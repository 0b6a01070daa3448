package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/oakmap/codemap/internal/output"
	"github.com/oakmap/codemap/internal/progress"
	"github.com/oakmap/codemap/internal/store"
	"github.com/oakmap/codemap/pkg/config"
	"github.com/oakmap/codemap/pkg/diff"
	"github.com/oakmap/codemap/pkg/engine"
	"github.com/oakmap/codemap/pkg/insight"
	"github.com/oakmap/codemap/pkg/models"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// getRoot returns the project root from the first positional arg,
// defaulting to the current directory.
func getRoot(c *cli.Context) (string, error) {
	root := "."
	if c.Args().Len() > 0 {
		root = c.Args().First()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid path %s: %w", root, err)
	}
	return abs, nil
}

func loadConfig(c *cli.Context, root string) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(root), nil
}

func newFormatter(c *cli.Context) (*output.Formatter, error) {
	return output.NewFormatter(output.ParseFormat(c.String("format")), c.String("output"), true)
}

func main() {
	app := &cli.App{
		Name:    "codemap",
		Usage:   "Structural code index with function-level change tracking",
		Version: version,
		Description: `Codemap scans a codebase, extracts its functions, and keeps versioned
snapshots so every run reports exactly what changed at function
granularity. It also detects the tech stack and architecture and ranks
the best files to read first.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, C#, Ruby, PHP`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"CODEMAP_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress progress output",
			},
		},
		Commands: []*cli.Command{
			initCmd(),
			analyzeCmd(),
			diffCmd(),
			reportCmd(),
			entrypointsCmd(),
			techstackCmd(),
			historyCmd(),
			authCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Initialize a .codemap directory with a default config",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(config.Path(root)); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.Path(root))
	}

	cfg := config.DefaultConfig()
	cfg.Project.Name = filepath.Base(root)
	if err := config.Save(root, cfg); err != nil {
		return err
	}
	if err := store.Open(root).Init(); err != nil {
		return err
	}

	color.Green("Initialized %s", filepath.Join(root, config.Dir))
	fmt.Println("Run `codemap analyze` to build the first snapshot.")
	return nil
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"update"},
		Usage:     "Scan the project and record a new snapshot",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-insights",
				Usage: "Skip AI re-ranking even when enabled in config",
			},
			&cli.IntFlag{
				Name:  "keep",
				Usage: "Prune stored snapshots beyond this count (0 keeps all)",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}

	st := store.Open(root)
	if !st.Initialized() {
		return store.ErrNotInitialized
	}

	eng := engine.New(root, cfg, st)
	if cfg.Insights.Enabled && !c.Bool("no-insights") {
		eng.WithInsight(insight.NewClient(cfg))
	}

	quiet := c.Bool("quiet") || c.String("format") != "text"
	var tracker *progress.Tracker
	obs := &engine.Observer{
		OnPhase: func(phase engine.Phase, total int) {
			if tracker != nil {
				tracker.Finish()
				tracker = nil
			}
			if phase == engine.PhaseExtracting {
				tracker = progress.NewTracker("Extracting...", total, quiet)
			}
		},
		OnFile: func() {
			if tracker != nil {
				tracker.Tick()
			}
		},
	}

	result, err := eng.Run(c.Context, obs)
	if tracker != nil {
		if err != nil {
			tracker.FinishError(err)
		} else {
			tracker.Finish()
		}
		tracker = nil
	}
	if err != nil {
		return err
	}
	if keep := c.Int("keep"); keep > 0 {
		if err := st.Prune(keep); err != nil {
			return err
		}
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	sum := result.Summary
	table := output.NewTable(
		fmt.Sprintf("Snapshot %d", result.Snapshot.Version),
		[]string{"Files", "Functions", "Added", "Modified", "Moved", "Removed", "Unchanged", "Reuse"},
		[][]string{{
			fmt.Sprintf("%d", result.Report.Metrics.TotalFiles),
			fmt.Sprintf("%d", result.Report.Metrics.TotalFunctions),
			fmt.Sprintf("%d", sum.Added),
			fmt.Sprintf("%d", sum.Modified),
			fmt.Sprintf("%d", sum.Moved),
			fmt.Sprintf("%d", sum.Removed),
			fmt.Sprintf("%d", sum.Unchanged),
			fmt.Sprintf("%.0f%%", result.Run.ReuseRatio*100),
		}},
		result.Run,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if formatter.Format() == output.FormatText {
		if result.Report.Degraded {
			color.Yellow("Insights unavailable; heuristic ranking kept.")
		}
		if n := len(result.Snapshot.Warnings); n > 0 {
			color.Yellow("Warnings (%d):", n)
			for _, w := range result.Snapshot.Warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	}
	return nil
}

func diffCmd() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show function-level changes recorded in the latest snapshot",
		ArgsUsage: "[path]",
		Action:    runDiffCmd,
	}
}

func runDiffCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}

	snap, err := store.Open(root).Latest()
	if err != nil {
		return err
	}
	changes := diff.Changes(snap)

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(changes) == 0 {
		formatter.Success("No function changes in snapshot %d.", snap.Version)
		return nil
	}

	rows := make([][]string, 0, len(changes))
	for _, fn := range changes {
		status := fn.Status.String()
		if formatter.Format() == output.FormatText {
			status = output.StatusColor(status, status)
		}
		rows = append(rows, []string{
			status,
			fn.File,
			fn.Name,
			fmt.Sprintf("%d-%d", fn.StartLine, fn.EndLine),
		})
	}

	table := output.NewTable(
		fmt.Sprintf("Changes in snapshot %d", snap.Version),
		[]string{"Status", "File", "Function", "Lines"},
		rows,
		changes,
	)
	return formatter.Output(table)
}

func reportCmd() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Aliases:   []string{"show"},
		Usage:     "Show the full report for the latest snapshot",
		ArgsUsage: "[path]",
		Action:    runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}
	report, err := store.Open(root).LoadReport()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	doc := &output.Document{
		Title:    fmt.Sprintf("%s (snapshot %d)", report.Project.Name, report.SnapshotVer),
		Sections: reportSections(report),
		Data:     report,
	}
	return formatter.Output(doc)
}

func reportSections(report *models.Report) []output.Renderable {
	var sections []output.Renderable

	if report.Brief != "" {
		sections = append(sections, &output.Section{Title: "Brief", Content: report.Brief})
	}

	arch := report.Architecture.Primary.Name
	if arch != models.UnclassifiedPattern {
		arch = fmt.Sprintf("%s (%.0f%% confidence)", arch, report.Architecture.Primary.Confidence*100)
	}
	m := report.Metrics
	sections = append(sections, &output.Section{
		Title: "Overview",
		Content: fmt.Sprintf(
			"Architecture: %s\nFiles: %d  Functions: %d\nAvg cyclomatic: %.1f  Avg cognitive: %.1f\nComment density: %.0f%%  Maintainability: %.0f/100  Debt: %.0f%%",
			arch, m.TotalFiles, m.TotalFunctions, m.AvgCyclomatic, m.AvgCognitive,
			m.CommentDensity*100, m.Maintainability, m.DebtPercent),
	})

	if len(report.TechStack) > 0 {
		sections = append(sections, techStackTable(report.TechStack))
	}
	if len(report.EntryPoints) > 0 {
		sections = append(sections, entryPointsTable(report.EntryPoints))
	}

	sum := report.DiffSummary
	sections = append(sections, &output.Section{
		Title: "Last Change",
		Content: fmt.Sprintf("added %d  modified %d  moved %d  removed %d  unchanged %d",
			sum.Added, sum.Modified, sum.Moved, sum.Removed, sum.Unchanged),
	})
	return sections
}

func techStackTable(stack []models.TechStackEntry) *output.Table {
	rows := make([][]string, 0, len(stack))
	for _, e := range stack {
		evidence := ""
		if len(e.Evidence) > 0 {
			evidence = e.Evidence[0]
		}
		rows = append(rows, []string{e.Category.String(), e.Name, evidence})
	}
	return output.NewTable("Tech Stack", []string{"Category", "Name", "Evidence"}, rows, stack)
}

func entryPointsTable(eps []models.EntryPoint) *output.Table {
	rows := make([][]string, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, []string{
			fmt.Sprintf("%d", ep.Rank),
			ep.Path,
			fmt.Sprintf("%.2f", ep.Score),
			ep.Rationale,
		})
	}
	return output.NewTable("Where to Start Reading", []string{"Rank", "File", "Score", "Why"}, rows, eps)
}

func entrypointsCmd() *cli.Command {
	return &cli.Command{
		Name:      "entrypoints",
		Aliases:   []string{"ep"},
		Usage:     "Show ranked entry-point files from the latest report",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			root, err := getRoot(c)
			if err != nil {
				return err
			}
			report, err := store.Open(root).LoadReport()
			if err != nil {
				return err
			}
			formatter, err := newFormatter(c)
			if err != nil {
				return err
			}
			defer formatter.Close()
			return formatter.Output(entryPointsTable(report.EntryPoints))
		},
	}
}

func techstackCmd() *cli.Command {
	return &cli.Command{
		Name:      "techstack",
		Aliases:   []string{"stack"},
		Usage:     "Show the detected tech stack from the latest report",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			root, err := getRoot(c)
			if err != nil {
				return err
			}
			report, err := store.Open(root).LoadReport()
			if err != nil {
				return err
			}
			formatter, err := newFormatter(c)
			if err != nil {
				return err
			}
			defer formatter.Close()
			return formatter.Output(techStackTable(report.TechStack))
		},
	}
}

func historyCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show the analysis run history",
		ArgsUsage: "[path]",
		Action:    runHistoryCmd,
	}
}

func runHistoryCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}
	history, err := store.Open(root).History()
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(history) == 0 {
		formatter.Info("No analysis runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, run := range history {
		rows = append(rows, []string{
			run.Timestamp.Format("2006-01-02 15:04"),
			fmt.Sprintf("%d", run.TotalFiles),
			fmt.Sprintf("%d", run.TotalFunctions),
			fmt.Sprintf("+%d ~%d >%d -%d", run.Added, run.Modified, run.Moved, run.Removed),
			fmt.Sprintf("%.0f%%", run.ReuseRatio*100),
			fmt.Sprintf("%dms", run.DurationMS),
		})
	}
	table := output.NewTable(
		"Run History",
		[]string{"When", "Files", "Functions", "Changes", "Reuse", "Duration"},
		rows,
		history,
	)
	return formatter.Output(table)
}

func authCmd() *cli.Command {
	return &cli.Command{
		Name:      "auth",
		Usage:     "Configure the AI insight provider",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "key",
				Usage: "API key to store in the project config",
			},
			&cli.BoolFlag{
				Name:  "disable",
				Usage: "Disable insights for this project",
			},
		},
		Action: runAuthCmd,
	}
}

func runAuthCmd(c *cli.Context) error {
	root, err := getRoot(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c, root)
	if err != nil {
		return err
	}

	if c.Bool("disable") {
		cfg.Insights.Enabled = false
		if err := config.Save(root, cfg); err != nil {
			return err
		}
		color.Green("Insights disabled.")
		return nil
	}

	key := c.String("key")
	if key == "" {
		key = cfg.ResolveAPIKey()
	}
	if key == "" {
		return fmt.Errorf("no API key: pass --key or set CODEMAP_API_KEY")
	}
	cfg.Insights.APIKey = key
	cfg.Insights.Enabled = true
	if err := config.Save(root, cfg); err != nil {
		return err
	}
	color.Green("Insights enabled with provider %s (%s).", cfg.Insights.Provider, cfg.Insights.Model)
	return nil
}
