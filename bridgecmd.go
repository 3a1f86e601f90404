package main

import (
	"errors"

	"github.com/spf13/cobra"

	"i4.energy/across/atkit/bridge"
	"i4.energy/across/atkit/terminal"
)

func (a *app) bridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Connect and relay commands and output over MQTT",
		Long: `bridge opens the serial port and an MQTT connection. Commands published on
<topic>/command are written to the device, device output is published on
<topic>/data, refused commands on <topic>/error and the link state on
<topic>/status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.bridge(cmd)
		},
	}
	flags := cmd.Flags()
	flags.String("broker", "", "MQTT broker, e.g. tcp://localhost:1883")
	flags.String("topic", "atkit", "Topic prefix")
	flags.String("client-id", "", "MQTT client ID (default atkit-<session>)")
	flags.String("mqtt-username", "", "MQTT username")
	flags.String("mqtt-password", "", "MQTT password")
	return cmd
}

func (a *app) bridge(cmd *cobra.Command) error {
	if a.config.MQTTBroker == "" {
		return errors.New("an MQTT broker is required (--broker or MQTT_BROKER)")
	}
	clientID := a.config.MQTTClientID
	if clientID == "" {
		clientID = "atkit-" + a.session.ID
	}

	b := bridge.New(a.session, a.config.MQTTTopic, a.logger.With("component", "bridge"))
	a.watch(func(ev terminal.Event) {
		b.HandleEvent(ev)
		if ev.Kind == terminal.EventConnectionError {
			a.logger.Error("Serial port lost, commands are refused until restart", "error", ev.Err)
		}
	})
	defer a.watch(nil)

	if err := a.connect(cmd); err != nil {
		return err
	}

	client, err := b.Connect(cmd.Context(), bridge.Options{
		Broker:   a.config.MQTTBroker,
		ClientID: clientID,
		Username: a.config.MQTTUsername,
		Password: a.config.MQTTPassword,
	})
	if err != nil {
		return err
	}
	a.logger.Info("Bridge running", "broker", a.config.MQTTBroker, "topic", a.config.MQTTTopic)

	<-cmd.Context().Done()
	a.logger.Info("Received shutdown signal")
	b.Detach()
	client.Disconnect(500)
	return nil
}
