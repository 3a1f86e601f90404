package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/atkit/panels"
	"i4.energy/across/atkit/session"
	"i4.energy/across/atkit/settings"
	"i4.energy/across/atkit/terminal"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	// dialer and listPorts are replaced in tests
	dialer    session.DialerFunc
	listPorts func() ([]terminal.PortInfo, error)

	config  *Config
	logger  *slog.Logger
	session *session.Session

	mu   sync.Mutex
	sink func(terminal.Event)
}

func newApp() *app {
	return &app{listPorts: terminal.ListPorts}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "atkit",
		Short: "Send GSM AT commands to a modem or phone over a serial port",
		Long: `atkit talks to a modem or phone over a serial port using the AT command set
of 3GPP TS 27.007. Responses are shown exactly as the device sends them.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	defaults := terminal.DefaultParams("/dev/ttyUSB0")
	flags := root.PersistentFlags()
	flags.String("port", defaults.Port, "Serial port the device is attached to")
	flags.Int("baud", defaults.BaudRate, "Baud rate")
	flags.Int("data-bits", defaults.DataBits, "Data bits per character (5-8)")
	flags.String("stop-bits", string(defaults.StopBits), "Stop bits (1, 1.5, 2)")
	flags.String("parity", string(defaults.Parity), "Parity (none, even, odd, mark, space)")
	flags.Bool("rtscts", false, "Enable RTS/CTS hardware flow control")
	flags.Bool("xonxoff", false, "Enable XON/XOFF software flow control")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("config", "", "Settings file (default $XDG_CONFIG_HOME/atkit/settings.yaml)")
	flags.Bool("dry-run", false, "Print commands instead of sending them")
	flags.Duration("wait", 2*time.Second, "How long to collect the response of a one-shot command")

	root.AddCommand(
		a.portsCmd(),
		a.consoleCmd(),
		a.infoCmd(),
		a.barringCmd(),
		a.callCmd(),
		a.passwordCmd(),
		a.dtmfCmd(),
		a.functionalityCmd(),
		a.fontCmd(),
		a.serveCmd(),
		a.bridgeCmd(),
	)
	return root
}

// setup loads the configuration and opens the session. Settings remembered
// from the last connection sit between the defaults and the environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}
	logger := newLogger(config.LogLevel, cmd.ErrOrStderr())

	path := config.SettingsPath
	if path == "" {
		if path, err = settings.DefaultPath(); err != nil {
			return err
		}
	}

	sess, err := session.New(session.Config{
		Store:   settings.NewStore(path),
		Logger:  logger,
		Dialer:  a.dialer,
		OnEvent: a.forward,
	})
	if err != nil {
		return err
	}

	if last, ok := sess.LastConnection(); ok {
		config, err = LoadConfig(WithDefaults(), WithLastConnection(&last), WithEnv(), WithFlags(cmd.Flags()))
		if err != nil {
			return err
		}
	}

	a.config = config
	a.logger = logger.With("session", sess.ID)
	a.session = sess
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.session == nil {
		return nil
	}
	return a.session.Close()
}

// forward hands terminal events to whoever is watching, if anyone.
func (a *app) forward(ev terminal.Event) {
	a.mu.Lock()
	sink := a.sink
	a.mu.Unlock()
	if sink != nil {
		sink(ev)
	}
}

func (a *app) watch(sink func(terminal.Event)) {
	a.mu.Lock()
	a.sink = sink
	a.mu.Unlock()
}

// connect opens the port described by the configuration.
func (a *app) connect(cmd *cobra.Command) error {
	params, err := a.config.ConnectionParams()
	if err != nil {
		return err
	}
	if err := a.session.Connect(cmd.Context(), params); err != nil {
		return fmt.Errorf("serial port error: %w", err)
	}
	a.logger.Info("Connected", "params", params.String())
	return nil
}

// runPanel executes one panel operation. In dry-run mode the command is
// printed; otherwise it is sent and the log collected for --wait is printed.
func (a *app) runPanel(cmd *cobra.Command, op func(*panels.Set) (string, error)) error {
	out := cmd.OutOrStdout()
	if a.config.DryRun {
		_, err := op(panels.NewSet(panels.WriterSender{W: out}))
		return err
	}

	if err := a.connect(cmd); err != nil {
		return err
	}
	defer func() {
		if err := a.session.Disconnect(); err != nil && !errors.Is(err, session.ErrDisconnected) {
			a.logger.Warn("Disconnect failed", "error", err)
		}
	}()

	command, err := op(a.session.Panels)
	if err != nil {
		return err
	}
	a.logger.Debug("Waiting for response", "command", command, "wait", a.config.Wait)

	select {
	case <-time.After(a.config.Wait):
	case <-cmd.Context().Done():
	}

	printLog(out, a.session.Log())
	return a.session.Err()
}

func printLog(w io.Writer, log string) {
	if log == "" {
		return
	}
	fmt.Fprint(w, log)
	if !strings.HasSuffix(log, "\n") {
		fmt.Fprintln(w)
	}
}
