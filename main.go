package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/alecthomas/kong"

	"yada/config"
	"yada/log"
	"yada/transcriber"
)

var version = "dev"

type CLI struct {
	Config  string           `help:"Config file (default: user config dir)." type:"path" placeholder:"PATH"`
	Logpath string           `help:"Log directory (default: OS-specific location, use ./ for current dir)." placeholder:"DIR"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Run     RunCmd     `cmd:"" default:"1" help:"Listen for the hotkey and dictate (default)."`
	Devices DevicesCmd `cmd:"" help:"List audio input devices."`
	Key     KeyCmd     `cmd:"" help:"Manage the API key."`
	Doctor  DoctorCmd  `cmd:"" help:"Run system diagnostics."`
	Replay  ReplayCmd  `cmd:"" help:"Drive the pipeline from a WAV file and stdin commands."`
}

// exitCode ends the process with a status but no message.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func run() int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("yada"),
		kong.Description("Push-to-talk dictation: speak, let a model clean it up, get text at the cursor."),
		kong.UsageOnError(),
		kong.Vars{"version": "yada " + version},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	e, err := newEnv(cli.Config, cli.Logpath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := kctx.Run(e); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			return int(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// env is what every command starts from: resolved paths, the config
// file and the credential store for the configured provider.
type env struct {
	store    *config.Store
	file     config.File
	provider transcriber.Provider
	creds    *config.Credentials
}

func newEnv(configPath, logPath string) (*env, error) {
	dir, err := log.ResolveDir(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(dir)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	store := config.NewStore(configPath)
	file, err := store.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
	}
	if err := file.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config: %v\n", err)
	}
	provider, err := transcriber.LookupProvider(file.API.Provider)
	if err != nil {
		return nil, err
	}
	return &env{
		store:    store,
		file:     file,
		provider: provider,
		creds:    config.NewCredentials(configPath, provider.KeyEnv),
	}, nil
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}
