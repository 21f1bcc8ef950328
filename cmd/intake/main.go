// Command intake runs and inspects the support intake wizard.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-intake/flow"
	"github.com/goliatone/go-logger/glog"
	"github.com/joho/godotenv"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type CLI struct {
	LogLevel  string `help:"Log level." default:"info" enum:"trace,debug,info,warn,error" env:"INTAKE_LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"json" enum:"json,text" env:"INTAKE_LOG_FORMAT"`
	EnvFile   string `help:"Environment file loaded before flags are read." default:".env" env:"INTAKE_ENV_FILE"`

	Serve   ServeCmd   `cmd:"" help:"Serve the intake HTTP API."`
	Replay  ReplayCmd  `cmd:"" help:"Run an action log through the wizard and print each state."`
	Graph   GraphCmd   `cmd:"" help:"Print the field dependency graph and invalidation closures."`
	Version VersionCmd `cmd:"" help:"Print the version."`
}

// runtime is bound into every command's Run method.
type runtime struct {
	logger flow.Logger
	out    io.Writer
}

func newLogger(format, level string, w io.Writer) flow.Logger {
	if format == "text" {
		return flow.NewFmtLogger(w)
	}
	return flow.NewGlogLogger(glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLoggerTypeJSON(),
		glog.WithLevel(level),
	))
}

// loadEnv reads the env file named by --env-file (or its variable) before
// kong resolves env defaults. A missing file is not an error.
func loadEnv(args []string) {
	path := os.Getenv("INTAKE_ENV_FILE")
	for i, arg := range args {
		switch {
		case strings.HasPrefix(arg, "--env-file="):
			path = strings.TrimPrefix(arg, "--env-file=")
		case arg == "--env-file" && i+1 < len(args):
			path = args[i+1]
		}
	}
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

func run(args []string, stdout, stderr io.Writer) error {
	loadEnv(args)

	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("intake"),
		kong.Description("Support intake wizard."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Vars{"version": version},
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	rt := &runtime{
		logger: newLogger(cli.LogFormat, cli.LogLevel, stderr),
		out:    stdout,
	}
	return kctx.Run(rt)
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "intake:", err)
		os.Exit(1)
	}
}

type VersionCmd struct{}

func (VersionCmd) Run(rt *runtime) error {
	_, err := fmt.Fprintln(rt.out, version)
	return err
}
