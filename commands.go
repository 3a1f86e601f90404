package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"i4.energy/across/atkit/panels"
	"i4.energy/across/atkit/settings"
)

func (a *app) portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List the serial ports present on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := a.listPorts()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No serial ports found")
				return nil
			}
			for _, p := range ports {
				if !p.IsUSB {
					fmt.Fprintln(out, p.Name)
					continue
				}
				fmt.Fprintf(out, "%s\tUSB %s:%s", p.Name, p.VID, p.PID)
				if p.Product != "" {
					fmt.Fprintf(out, " %s", p.Product)
				}
				if p.SerialNumber != "" {
					fmt.Fprintf(out, " (%s)", p.SerialNumber)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	names := make([]string, len(panels.InfoItems))
	for i, item := range panels.InfoItems {
		names[i] = string(item)
	}

	return &cobra.Command{
		Use:       "info <" + strings.Join(names, "|") + ">",
		Short:     "Request identification and capability information",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := panels.ParseInfoItem(args[0])
			if err != nil {
				return err
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.BasicInfo.Request(item)
			})
		},
	}
}

func (a *app) barringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "barring",
		Short: "Enable, disable or interrogate call barring (AT+CLCK)",
	}

	var (
		password string
		classes  []string
	)
	change := func(enable bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			f, err := panels.ParseBarringFacility(args[0])
			if err != nil {
				return err
			}
			c, err := panels.ParseClasses(classes)
			if err != nil {
				return err
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				if enable {
					return p.CallBarring.Enable(f, password, c)
				}
				return p.CallBarring.Disable(f, password, c)
			})
		}
	}

	enable := &cobra.Command{
		Use:   "enable <facility>",
		Short: "Enable barring for a facility (AO, OI, OX, AI, IR)",
		Args:  cobra.ExactArgs(1),
		RunE:  change(true),
	}
	disable := &cobra.Command{
		Use:   "disable <facility>",
		Short: "Disable barring for a facility (AO, OI, OX, AI, IR, AC, AG, AB)",
		Args:  cobra.ExactArgs(1),
		RunE:  change(false),
	}
	for _, c := range []*cobra.Command{enable, disable} {
		c.Flags().StringVar(&password, "password", "", "Network password")
		c.Flags().StringSliceVar(&classes, "class", nil, "Information classes (1,2,4,...,128 or all)")
	}

	interrogate := &cobra.Command{
		Use:   "interrogate <facility>",
		Short: "Query the barring status of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := panels.ParseBarringFacility(args[0])
			if err != nil {
				return err
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.CallBarring.Interrogate(f)
			})
		},
	}

	cmd.AddCommand(enable, disable, interrogate)
	return cmd
}

func (a *app) callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Dial, answer and hang up calls",
	}

	var callType string
	dial := &cobra.Command{
		Use:   "dial <number>",
		Short: "Dial a voice or data call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := panels.ParseCallType(callType)
			if err != nil {
				return err
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.CallControl.Dial(t, args[0])
			})
		},
	}
	dial.Flags().StringVar(&callType, "type", "voice", "Call type (voice, data)")

	answer := &cobra.Command{
		Use:   "answer",
		Short: "Answer an incoming call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.CallControl.Answer()
			})
		},
	}

	hangup := &cobra.Command{
		Use:   "hangup",
		Short: "Hang up the current call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.CallControl.HangUp()
			})
		},
	}

	cmd.AddCommand(dial, answer, hangup)
	return cmd
}

func (a *app) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change facility passwords (AT+CPWD)",
	}

	var oldPassword, newPassword string
	change := &cobra.Command{
		Use:   "change <facility>",
		Short: "Change the password of a facility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := panels.ParsePasswordFacility(args[0])
			if err != nil {
				return err
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.ChangePasswords.Change(f, oldPassword, newPassword)
			})
		},
	}
	change.Flags().StringVar(&oldPassword, "old", "", "Current password")
	change.Flags().StringVar(&newPassword, "new", "", "New password")

	test := &cobra.Command{
		Use:   "test",
		Short: "List the facilities and password lengths the device supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.ChangePasswords.Test()
			})
		},
	}

	cmd.AddCommand(change, test)
	return cmd
}

func (a *app) dtmfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dtmf",
		Short: "Send DTMF tones (AT+VTS)",
	}

	key := &cobra.Command{
		Use:   "key <0-9|A-D|*|#>",
		Short: "Send a single DTMF tone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.DTMF.Key(args[0])
			})
		},
	}

	send := &cobra.Command{
		Use:   "send <tones>",
		Short: "Send a comma separated tone string, e.g. 1,2,A",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tones := strings.Join(args, " ")
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.DTMF.Tones(tones)
			})
		},
	}

	cmd.AddCommand(key, send)
	return cmd
}

func (a *app) functionalityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "functionality",
		Short: "Set the phone functionality level (AT+CFUN)",
	}

	set := &cobra.Command{
		Use:   "set [level]",
		Short: fmt.Sprintf("Switch to a functionality level (default %d)", panels.DefaultLevel),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := panels.DefaultLevel
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid functionality level %q", args[0])
				}
				level = panels.Level(n)
			}
			return a.runPanel(cmd, func(p *panels.Set) (string, error) {
				return p.Functionality.Set(level)
			})
		},
	}

	levels := &cobra.Command{
		Use:   "levels",
		Short: "List the functionality levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, l := range panels.Levels {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", l, l.Label())
			}
			return nil
		},
	}

	cmd.AddCommand(set, levels)
	return cmd
}

func (a *app) fontCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "font",
		Short: "Show or change the remembered terminal font",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the remembered font",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			font, ok := a.session.Font()
			if !ok {
				return errors.New("no font has been chosen")
			}
			fmt.Fprintln(cmd.OutOrStdout(), font)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <family> [size]",
		Short: "Remember a font, e.g. \"DejaVu Sans Mono 11\"",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			font, err := settings.ParseFont(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return a.session.SetFont(font)
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}
