package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/sharecrop/internal/config"
	"github.com/example/sharecrop/internal/notify"
	"github.com/example/sharecrop/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs          *flag.FlagSet
	program     string
	notifier    *notify.Notifier
	config      *config.Config
	logLevel    string
	themeName   string
	acceptAlert bool
	cancelAlert bool
	endedAlert  bool
	activeTheme *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func (r *root) Template() string {
	return "root.txt"
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		logrus.WithError(err).Warn("failed to load config, using defaults")
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("sharecrop", flag.ExitOnError),
		program:  "sharecrop",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
	}
	r.fs.StringVar(&r.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	r.fs.BoolVar(&r.acceptAlert, "notify-accept", cfg.Notify.Accept, "show a desktop notification when sharing starts")
	r.fs.BoolVar(&r.cancelAlert, "notify-cancel", cfg.Notify.Cancel, "show a desktop notification when an edit is cancelled")
	r.fs.BoolVar(&r.endedAlert, "notify-ended", cfg.Notify.Ended, "show a desktop notification when the shared source ends")

	// Precedence: CLI > Env > Config > Default
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, dark or a config theme)")
	r.fs.Usage = usageFunc(r)
	return r
}

func (r *root) setup() {
	level := r.logLevel
	if level == "" {
		level = os.Getenv("SHARECROP_LOG_LEVEL")
	}
	if level == "" {
		level = r.config.LogLevel
	}
	if level != "" {
		if lvl, err := logrus.ParseLevel(level); err != nil {
			logrus.WithError(err).Warn("ignoring log level")
		} else {
			logrus.SetLevel(lvl)
		}
	}

	if r.notifier != nil {
		r.notifier.Enable(notify.EventAccept, r.acceptAlert)
		r.notifier.Enable(notify.EventCancel, r.cancelAlert)
		r.notifier.Enable(notify.EventEnded, r.endedAlert)
	}

	themeName := r.themeName
	if themeName == "" {
		themeName = os.Getenv("SHARECROP_THEME")
	}
	if themeName == "" {
		themeName = r.config.Theme
	}
	r.activeTheme = r.config.ThemeLoader().Resolve(themeName)
}

func (r *root) subcommand(name string) *root {
	c := *r
	c.fs = nil
	c.program = strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &c
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	r.setup()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r.subcommand(cmdName))
	case "render":
		cmd, err = parseRenderCmd(subArgs, r.subcommand(cmdName))
	case "monitors":
		cmd, err = parseMonitorsCmd(subArgs, r.subcommand(cmdName))
	case "windows":
		cmd, err = parseWindowsCmd(subArgs, r.subcommand(cmdName))
	case "config":
		cmd, err = parseConfigCmd(subArgs, r.subcommand(cmdName))
	case "version":
		cmd = &versionCmd{r: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
