// Package cli implements robocurse's command-line surface.
package cli

import (
	"context"
	"io"
	"os"
	"strconv"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/robocurse/robocurse/config"
	"github.com/robocurse/robocurse/internal/logging"
	"github.com/robocurse/robocurse/orchestrator"
)

var log = logging.Module("robocurse/cli") // nolint:gochecknoglobals

// nolint:gochecknoglobals
var (
	defaultColor = color.New()
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgHiRed)
	noteColor    = color.New(color.FgHiCyan)
)

// commandParent is implemented by App and any command that can have
// sub-commands.
type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// appServices are the methods command handlers are allowed to call.
type appServices interface {
	loadConfig() (config.RunConfig, error)
	newOrchestrator(ctx context.Context, cfg config.RunConfig) (context.Context, *orchestrator.State, func(), error)
	getProgress() *cliProgress
	stdout() io.Writer
	stderr() io.Writer
	rootContext() context.Context
	interactive() bool
	setExitCode(code int)
}

// App holds per-invocation flags and wiring for the robocurse CLI.
type App struct {
	configPath        string
	headless          bool
	interactiveScreen bool

	progress *cliProgress

	run         commandRun
	profileList commandProfileList

	exitCode int

	osExit       func(int)
	stdoutWriter io.Writer
	stderrWriter io.Writer
	rootctx      context.Context // nolint:containedctx
}

// NewApp constructs an App with its default (non-test) service wiring.
func NewApp() *App {
	return &App{
		progress:     newCLIProgress(false),
		osExit:       os.Exit,
		stdoutWriter: colorable.NewColorableStdout(),
		stderrWriter: colorable.NewColorableStderr(),
		rootctx:      context.Background(),
	}
}

func (c *App) getProgress() *cliProgress  { return c.progress }
func (c *App) stdout() io.Writer          { return c.stdoutWriter }
func (c *App) stderr() io.Writer          { return c.stderrWriter }
func (c *App) rootContext() context.Context {
	return c.rootctx
}
func (c *App) interactive() bool { return c.interactiveScreen }

// stdoutIsTerminal reports whether stdout is attached to an interactive
// terminal, used as the --interactive flag's default so piping robocurse's
// output to a file or CI log falls back to plain progress lines.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
func (c *App) setExitCode(code int) {
	if code > c.exitCode {
		c.exitCode = code
	}
}

// loadConfig reads and validates the YAML file named by --config.
func (c *App) loadConfig() (config.RunConfig, error) {
	return LoadConfigFile(c.configPath)
}

// newOrchestrator wires a fresh Profiler, Event Sink, and Orchestrator for
// one run, returning a cleanup func that must be called once the run ends.
func (c *App) newOrchestrator(ctx context.Context, cfg config.RunConfig) (context.Context, *orchestrator.State, func(), error) {
	return NewOrchestratorForConfig(ctx, cfg)
}

func (c *App) setup(app *kingpin.Application) {
	app.Flag("config", "Path to the robocurse YAML configuration file").
		Short('c').Default("robocurse.yaml").Envar("ROBOCURSE_CONFIG").StringVar(&c.configPath)
	app.Flag("headless", "Run without the interactive status screen").
		Default("false").BoolVar(&c.headless)
	app.Flag("interactive", "Show the interactive status screen instead of plain log lines").
		Default(strconv.FormatBool(stdoutIsTerminal())).BoolVar(&c.interactiveScreen)

	app.PreAction(func(*kingpin.ParseContext) error {
		c.progress.SetEnabled(c.interactiveScreen && !c.headless)
		return nil
	})

	c.run.setup(c, app)
	c.profileList.setup(c, app)
}

// Attach attaches the CLI parser to app.
func (c *App) Attach(app *kingpin.Application) {
	c.setup(app)
}

// Run parses args and executes the selected command, returning the
// process exit code: 0 if all profiles completed with zero Failed chunks,
// 1 otherwise (including any configuration or Stopped
// outcome). Command actions report their own run-level failure via
// c.exitCode before returning nil, since kingpin itself only distinguishes
// "parse/action error" from "success", not "ran but some chunks failed".
func Run(args []string) int {
	app := kingpin.New("robocurse", "Parallel directory replication orchestrator.")
	c := NewApp()
	c.Attach(app)

	if _, err := app.Parse(args); err != nil {
		errorColor.Fprintf(c.stderrWriter, "robocurse: %v\n", err) // nolint:errcheck
		return 1
	}

	return c.exitCode
}

func init() {
	kingpin.EnableFileExpansion = false
}
