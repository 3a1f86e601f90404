package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"i4.energy/across/atkit/panels"
	"i4.energy/across/atkit/session"
	"i4.energy/across/atkit/settings"
	"i4.energy/across/atkit/terminal"
)

const consoleHelp = `Lines are sent to the device as typed. Console commands:
  /info <item>         request identification (imei, imsi, manufacturer, model, software, capabilities, commands)
  /dial <number> [data] dial a voice call, or a data call
  /answer              answer an incoming call
  /hangup              hang up
  /dtmf <tones>        send DTMF tones, e.g. 1,2,A
  /cfun [level]        set the functionality level (0-6)
  /log                 print the whole log
  /clear               clear the log
  /connect             reconnect to the serial port
  /disconnect          close the serial port
  /font [family size]  show or change the terminal font
  /quit                leave the console
`

func (a *app) consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open an interactive terminal to the device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.config.ConnectionParams()
			if err != nil {
				return err
			}
			c := newConsole(a.session, params, cmd.InOrStdin(), cmd.OutOrStdout())
			a.watch(c.show)
			defer a.watch(nil)
			return c.run(cmd.Context())
		},
	}
}

// console is a line based terminal. Input lines are sent as commands,
// device output is printed as it arrives.
type console struct {
	session *session.Session
	params  terminal.ConnectionParams
	in      io.Reader

	mu  sync.Mutex
	out io.Writer
}

func newConsole(s *session.Session, params terminal.ConnectionParams, in io.Reader, out io.Writer) *console {
	return &console{session: s, params: params, in: in, out: out}
}

// run connects and processes input until /quit, end of input or ctx is
// done. Failing to open the port the first time ends the console.
func (c *console) run(ctx context.Context) error {
	if err := c.session.Connect(ctx, c.params); err != nil {
		return fmt.Errorf("serial port error: %w", err)
	}
	defer c.session.Close()

	c.printf("Connected to %s. Type /help for console commands.\n", c.params)
	if font, ok := c.session.Font(); ok {
		c.printf("Terminal font: %s\n", font)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the console should end.
func (c *console) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.report(c.session.Send(line))
		return false
	}

	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]
	p := c.session.Panels

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		c.printf("%s", consoleHelp)
	case "/log":
		c.mu.Lock()
		printLog(c.out, c.session.Log())
		c.mu.Unlock()
	case "/clear":
		c.session.ClearLog()
	case "/connect":
		if err := c.session.Connect(ctx, c.params); err != nil {
			c.printf("Serial Port Error: %v\n", err)
			break
		}
		c.printf("Connected to %s.\n", c.params)
	case "/disconnect":
		if err := c.session.Disconnect(); err != nil {
			c.report(err)
			break
		}
		c.printf("Disconnected.\n")
	case "/info":
		if len(args) != 1 {
			c.printf("usage: /info <item>\n")
			break
		}
		item, err := panels.ParseInfoItem(args[0])
		if err != nil {
			c.report(err)
			break
		}
		_, err = p.BasicInfo.Request(item)
		c.report(err)
	case "/dial":
		if len(args) == 0 {
			c.printf("usage: /dial <number> [data]\n")
			break
		}
		t := panels.CallVoice
		if len(args) > 1 {
			var err error
			if t, err = panels.ParseCallType(args[1]); err != nil {
				c.report(err)
				break
			}
		}
		_, err := p.CallControl.Dial(t, args[0])
		c.report(err)
	case "/answer":
		_, err := p.CallControl.Answer()
		c.report(err)
	case "/hangup":
		_, err := p.CallControl.HangUp()
		c.report(err)
	case "/dtmf":
		_, err := p.DTMF.Tones(strings.Join(args, " "))
		c.report(err)
	case "/cfun":
		level := panels.DefaultLevel
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				c.printf("Error: invalid functionality level %q\n", args[0])
				break
			}
			level = panels.Level(n)
		}
		_, err := p.Functionality.Set(level)
		c.report(err)
	case "/font":
		if len(args) == 0 {
			if font, ok := c.session.Font(); ok {
				c.printf("Terminal font: %s\n", font)
			} else {
				c.printf("No font has been chosen.\n")
			}
			break
		}
		font, err := settings.ParseFont(strings.Join(args, " "))
		if err == nil {
			err = c.session.SetFont(font)
		}
		c.report(err)
	default:
		c.printf("Unknown command %s, type /help for a list.\n", name)
	}
	return false
}

// show prints terminal events as they happen.
func (c *console) show(ev terminal.Event) {
	switch ev.Kind {
	case terminal.EventData, terminal.EventCommand:
		c.printf("%s", ev.Data)
	case terminal.EventConnectionError:
		c.printf("\nSerial Port Error: %v\nUse /connect to reconnect.\n", ev.Err)
	}
}

func (c *console) report(err error) {
	var verr *panels.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, session.ErrDisconnected):
		c.printf("Not connected. Use /connect to open the serial port.\n")
	case errors.As(err, &verr):
		c.printf("%s\n", verr.Message)
	default:
		c.printf("Error: %v\n", err)
	}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
