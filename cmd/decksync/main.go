package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/drpcorg/decksync"
	"github.com/drpcorg/decksync/archive"
	"github.com/drpcorg/decksync/utils"
	"github.com/ergochat/readline"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	ArchiveDir  string     `env:"DECKSYNC_ARCHIVE_DIR" envDefault:"decksync-archive"`
	HistorySize int        `env:"DECKSYNC_HISTORY_SIZE" envDefault:"100"`
	Threshold   float64    `env:"DECKSYNC_DELTA_THRESHOLD" envDefault:"0.3"`
	CmdLog      string     `env:"DECKSYNC_CMD_LOG" envDefault:".decksync_cmd_log.txt"`
	LogLevel    slog.Level `env:"DECKSYNC_LOG_LEVEL" envDefault:"info"`
}

// REPL per se.
type REPL struct {
	cfg    Config
	log    utils.Logger
	reg    *decksync.Registry
	store  *archive.Store
	gauges *prometheus.Registry

	session *decksync.Session
	actor   string

	rl *readline.Instance
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("new"),
	readline.PcItem("open"),
	readline.PcItem("sessions"),
	readline.PcItem("drop"),
	readline.PcItem("clear"),

	readline.PcItem("as"),
	readline.PcItem("submit"),
	readline.PcItem("state"),
	readline.PcItem("undo"),
	readline.PcItem("redo"),
	readline.PcItem("history"),

	readline.PcItem("delta"),
	readline.PcItem("sync"),
	readline.PcItem("verify"),
	readline.PcItem("load"),
	readline.PcItem("stats"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◇ ",
		HistoryFile:     repl.cfg.CmdLog,
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()

	repl.store, err = archive.Open(repl.cfg.ArchiveDir)
	if err != nil {
		return
	}
	repl.reg = decksync.NewRegistry(decksync.Options{
		HistorySize:          repl.cfg.HistorySize,
		CompressionThreshold: repl.cfg.Threshold,
		Logger:               repl.log,
	})

	repl.gauges = prometheus.NewRegistry()
	repl.gauges.MustRegister(
		decksync.AppliedTotal,
		decksync.RejectedTotal,
		decksync.EvictedTotal,
		decksync.HookFailures,
		decksync.SyncEnvelopes,
		decksync.DeltaRatio,
		decksync.LiveSessions,
		archive.NewCollector(repl.store),
	)

	repl.log.Info("decksync repl up", "archive", repl.cfg.ArchiveDir)
	return
}

func (repl *REPL) Close() error {
	if repl.reg != nil {
		repl.reg.Close()
		repl.reg = nil
	}
	if repl.store != nil {
		if err := repl.store.Close(); err != nil {
			repl.log.Warn("archive close failed", "err", err)
		}
		repl.store = nil
	}
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

func (repl *REPL) REPL() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}

	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	ws := strings.IndexAny(line, " \t\r\n")
	cmd := ""
	if ws > 0 {
		cmd = line[:ws]
		line = strings.TrimSpace(line[ws:])
	} else {
		cmd = line
		line = ""
	}

	switch cmd {
	case "help":
		err = repl.CommandHelp(line)
	// ----- session handling -----
	case "new":
		err = repl.CommandNew(line)
	case "open":
		err = repl.CommandOpen(line)
	case "ls", "sessions":
		err = repl.CommandSessions(line)
	case "drop":
		err = repl.CommandDrop(line)
	case "clear":
		err = repl.CommandClear(line)
	// ----- play -----
	case "as":
		err = repl.CommandAs(line)
	case "submit":
		err = repl.CommandSubmit(line)
	case "state", "cat":
		err = repl.CommandState(line)
	case "undo":
		err = repl.CommandUndo(line)
	case "redo":
		err = repl.CommandRedo(line)
	case "history":
		err = repl.CommandHistory(line)
	// ----- replication -----
	case "delta":
		err = repl.CommandDelta(line)
	case "sync":
		err = repl.CommandSync(line)
	case "verify":
		err = repl.CommandVerify(line)
	case "load":
		err = repl.CommandLoad(line)
	// ----- debug -----
	case "stats":
		err = repl.CommandStats(line)
	case "exit", "quit":
		return io.EOF
	default:
		_, _ = fmt.Fprintf(os.Stderr, "command unknown: %s\n", cmd)
	}
	return err
}

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-2)
	}

	repl := REPL{cfg: cfg, log: utils.NewDefaultLogger(cfg.LogLevel)}
	if err := repl.Open(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(-1)
	}
	defer repl.Close()

	var err error
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
		}
		err = repl.REPL()
	}
}
