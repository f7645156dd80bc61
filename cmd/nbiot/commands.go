package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mitchellh/cli"

	"github.com/relabs-tech/nbiot/core/model"
	"github.com/relabs-tech/nbiot/core/pointers"
	"github.com/relabs-tech/nbiot/core/stream"
	"github.com/relabs-tech/nbiot/nbiot"
)

type clientFactory func() (*nbiot.Client, error)

func commands(ui cli.Ui, newClient clientFactory) map[string]cli.CommandFactory {
	base := baseCommand{ui: ui, newClient: newClient}
	return map[string]cli.CommandFactory{
		"teams": func() (cli.Command, error) {
			return &teamsCommand{baseCommand: base}, nil
		},
		"collections": func() (cli.Command, error) {
			return &collectionsCommand{baseCommand: base}, nil
		},
		"devices": func() (cli.Command, error) {
			return &devicesCommand{baseCommand: base}, nil
		},
		"outputs": func() (cli.Command, error) {
			return &outputsCommand{baseCommand: base}, nil
		},
		"listen": func() (cli.Command, error) {
			return &listenCommand{baseCommand: base}, nil
		},
		"send": func() (cli.Command, error) {
			return &sendCommand{baseCommand: base}, nil
		},
		"webhook": func() (cli.Command, error) {
			return &webhookCommand{baseCommand: base}, nil
		},
	}
}

type baseCommand struct {
	ui        cli.Ui
	newClient clientFactory
}

func (c *baseCommand) client() (*nbiot.Client, bool) {
	client, err := c.newClient()
	if err != nil {
		c.ui.Error(fmt.Sprintf("cannot create client: %v", err))
		return nil, false
	}
	return client, true
}

// print writes v as indented JSON
func (c *baseCommand) print(v interface{}) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		c.ui.Error(err.Error())
		return 1
	}
	c.ui.Output(string(out))
	return 0
}

func (c *baseCommand) fail(err error) int {
	c.ui.Error(err.Error())
	return 1
}

type teamsCommand struct {
	baseCommand
}

func (c *teamsCommand) Synopsis() string {
	return "List teams"
}

func (c *teamsCommand) Help() string {
	return `Usage: nbiot teams

  Lists all teams the token has access to.`
}

func (c *teamsCommand) Run(args []string) int {
	if len(args) != 0 {
		return cli.RunResultHelp
	}
	client, ok := c.client()
	if !ok {
		return 1
	}
	teams, err := client.Teams()
	if err != nil {
		return c.fail(err)
	}
	return c.print(teams)
}

type collectionsCommand struct {
	baseCommand
}

func (c *collectionsCommand) Synopsis() string {
	return "List collections"
}

func (c *collectionsCommand) Help() string {
	return `Usage: nbiot collections

  Lists all collections the token has access to.`
}

func (c *collectionsCommand) Run(args []string) int {
	if len(args) != 0 {
		return cli.RunResultHelp
	}
	client, ok := c.client()
	if !ok {
		return 1
	}
	collections, err := client.Collections()
	if err != nil {
		return c.fail(err)
	}
	return c.print(collections)
}

type devicesCommand struct {
	baseCommand
}

func (c *devicesCommand) Synopsis() string {
	return "List the devices of a collection"
}

func (c *devicesCommand) Help() string {
	return `Usage: nbiot devices <collection>

  Lists all devices of a collection.`
}

func (c *devicesCommand) Run(args []string) int {
	if len(args) != 1 {
		return cli.RunResultHelp
	}
	client, ok := c.client()
	if !ok {
		return 1
	}
	devices, err := client.Devices(args[0])
	if err != nil {
		return c.fail(err)
	}
	return c.print(devices)
}

type outputsCommand struct {
	baseCommand
}

func (c *outputsCommand) Synopsis() string {
	return "List the outputs of a collection"
}

func (c *outputsCommand) Help() string {
	return `Usage: nbiot outputs <collection>

  Lists all outputs of a collection.`
}

func (c *outputsCommand) Run(args []string) int {
	if len(args) != 1 {
		return cli.RunResultHelp
	}
	client, ok := c.client()
	if !ok {
		return 1
	}
	outputs, err := client.Outputs(args[0])
	if err != nil {
		return c.fail(err)
	}
	return c.print(outputs)
}

type listenCommand struct {
	baseCommand

	// ctx ends the listening. If nil, listening ends on interrupt.
	ctx context.Context
}

func (c *listenCommand) Synopsis() string {
	return "Print the data of a collection or a device as it arrives"
}

func (c *listenCommand) Help() string {
	return `Usage: nbiot listen <collection> [device]

  Opens the output stream of a collection, or of a single device in the collection,
  and prints every data message until interrupted.`
}

func (c *listenCommand) Run(args []string) int {
	if len(args) < 1 || len(args) > 2 {
		return cli.RunResultHelp
	}
	ctx := c.ctx
	if ctx == nil {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
	}

	client, ok := c.client()
	if !ok {
		return 1
	}
	client = client.WithContext(ctx)
	var err error
	var feed *stream.OutputStream
	if len(args) == 2 {
		feed, err = client.DeviceOutputStream(args[0], args[1])
	} else {
		feed, err = client.CollectionOutputStream(args[0])
	}
	if err != nil {
		return c.fail(err)
	}
	defer feed.Close()

	err = feed.Run(ctx, func(m model.DataMessage) {
		c.ui.Output(fmt.Sprintf("%s %s %s",
			m.Received.Format("2006-01-02T15:04:05.000Z07:00"), m.Device.ID, base64.StdEncoding.EncodeToString(m.Payload)))
	})
	if err != nil && ctx.Err() == nil {
		return c.fail(err)
	}
	return 0
}

type sendCommand struct {
	baseCommand
}

func (c *sendCommand) Synopsis() string {
	return "Send a message to a device"
}

func (c *sendCommand) Help() string {
	return `Usage: nbiot send [options] <collection> <device> <port> <payload>

  Sends payload to a port of a device. The payload is sent as text unless
  -base64 is set.

Options:

  -base64            the payload is base64 encoded
  -transport=<name>  one of udp, coap, udp-pull or coap-pull
  -path=<path>       the CoAP path for coap transports`
}

func (c *sendCommand) Run(args []string) int {
	f := flag.NewFlagSet("send", flag.ContinueOnError)
	f.SetOutput(new(strings.Builder))
	isBase64 := f.Bool("base64", false, "the payload is base64 encoded")
	transport := f.String("transport", "", "the transport of the message")
	path := f.String("path", "", "the CoAP path")
	if err := f.Parse(args); err != nil {
		c.ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return cli.RunResultHelp
	}
	if f.NArg() != 4 {
		return cli.RunResultHelp
	}
	collectionID, deviceID := f.Arg(0), f.Arg(1)
	port, err := strconv.Atoi(f.Arg(2))
	if err != nil {
		return c.fail(fmt.Errorf("invalid port '%s'", f.Arg(2)))
	}
	payload := []byte(f.Arg(3))
	if *isBase64 {
		if payload, err = base64.StdEncoding.DecodeString(f.Arg(3)); err != nil {
			return c.fail(fmt.Errorf("invalid payload: %w", err))
		}
	}

	client, ok := c.client()
	if !ok {
		return 1
	}
	message := model.DownstreamMessage{Port: port, Payload: payload, Path: *path, Transport: *transport}
	if err := client.Send(collectionID, deviceID, message); err != nil {
		return c.fail(err)
	}
	c.ui.Info(fmt.Sprintf("sent %d bytes to %s", len(payload), deviceID))
	return 0
}

type webhookCommand struct {
	baseCommand
}

func (c *webhookCommand) Synopsis() string {
	return "Create a webhook output in a collection"
}

func (c *webhookCommand) Help() string {
	return `Usage: nbiot webhook [options] <collection> <url>

  Creates an enabled webhook output which forwards the data of the collection to url.

Options:

  -user=<name>          user for basic authentication
  -password=<password>  password for basic authentication
  -header-name=<name>   name of a custom header sent with every request
  -header-value=<value> value of the custom header`
}

func (c *webhookCommand) Run(args []string) int {
	f := flag.NewFlagSet("webhook", flag.ContinueOnError)
	f.SetOutput(new(strings.Builder))
	user := f.String("user", "", "user for basic authentication")
	password := f.String("password", "", "password for basic authentication")
	headerName := f.String("header-name", "", "name of a custom header")
	headerValue := f.String("header-value", "", "value of the custom header")
	if err := f.Parse(args); err != nil {
		c.ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return cli.RunResultHelp
	}
	if f.NArg() != 2 {
		return cli.RunResultHelp
	}

	client, ok := c.client()
	if !ok {
		return 1
	}
	output := &model.WebHookOutput{
		OutputBase: model.OutputBase{Enabled: true},
		Config: model.WebHookConfig{
			URL:               f.Arg(1),
			BasicAuthUser:     pointers.String(*user),
			BasicAuthPass:     pointers.String(*password),
			CustomHeaderName:  pointers.String(*headerName),
			CustomHeaderValue: pointers.String(*headerValue),
		},
	}
	created, err := client.CreateOutput(f.Arg(0), output)
	if err != nil {
		return c.fail(err)
	}
	if webhook, ok := created.(*model.WebHookOutput); ok {
		if u := pointers.Value(webhook.Config.BasicAuthUser); u != "" {
			c.ui.Info(fmt.Sprintf("created webhook %s for %s as %s", webhook.ID, webhook.Config.URL, u))
			return 0
		}
	}
	c.ui.Info(fmt.Sprintf("created webhook %s", created.Base().ID))
	return 0
}
