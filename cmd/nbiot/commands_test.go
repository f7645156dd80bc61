package main

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nbiot/core/model"
	"github.com/relabs-tech/nbiot/nbiot"
	"github.com/relabs-tech/nbiot/nbiot/nbiottest"
)

const testToken = "cli-token"

func setup(t *testing.T) (*nbiottest.Server, *nbiot.Client, *cli.MockUi, map[string]cli.CommandFactory) {
	server := nbiottest.NewServer(testToken)
	t.Cleanup(server.Close)
	newClient := func() (*nbiot.Client, error) {
		return nbiot.New(&nbiot.Builder{Address: server.URL(), Token: testToken})
	}
	client, err := newClient()
	require.NoError(t, err)
	ui := cli.NewMockUi()
	return server, client, ui, commands(ui, newClient)
}

func run(t *testing.T, factories map[string]cli.CommandFactory, name string, args ...string) int {
	t.Helper()
	cmd, err := factories[name]()
	require.NoError(t, err)
	return cmd.Run(args)
}

func TestListCommands(t *testing.T) {
	server, client, ui, factories := setup(t)
	collection, err := client.CreateCollection(model.Collection{})
	require.NoError(t, err)
	device, err := client.CreateDevice(collection.ID, model.Device{IMSI: "242016000001"})
	require.NoError(t, err)

	assert.Equal(t, 0, run(t, factories, "teams"))
	assert.Contains(t, ui.OutputWriter.String(), server.PrivateTeamID())

	assert.Equal(t, 0, run(t, factories, "collections"))
	assert.Contains(t, ui.OutputWriter.String(), collection.ID)

	assert.Equal(t, 0, run(t, factories, "devices", collection.ID))
	assert.Contains(t, ui.OutputWriter.String(), device.ID)

	assert.Equal(t, 0, run(t, factories, "outputs", collection.ID))
	assert.Equal(t, cli.RunResultHelp, run(t, factories, "devices"))

	assert.Equal(t, 1, run(t, factories, "outputs", "no-such-collection"))
	assert.Contains(t, ui.ErrorWriter.String(), "not found")
}

func TestSendCommand(t *testing.T) {
	server, client, ui, factories := setup(t)
	collection, err := client.CreateCollection(model.Collection{})
	require.NoError(t, err)
	device, err := client.CreateDevice(collection.ID, model.Device{})
	require.NoError(t, err)

	assert.Equal(t, 0, run(t, factories, "send", collection.ID, device.ID, "1234", "hello"))
	assert.Equal(t, 0, run(t, factories, "send", "-base64", "-transport=coap", "-path=/led", collection.ID, device.ID, "5683", base64.StdEncoding.EncodeToString([]byte{1, 2})))
	assert.Contains(t, ui.OutputWriter.String(), "sent 5 bytes to "+device.ID)

	sent := server.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, model.DownstreamMessage{Port: 1234, Payload: []byte("hello")}, sent[0].Message)
	assert.Equal(t, model.DownstreamMessage{Port: 5683, Payload: []byte{1, 2}, Path: "/led", Transport: "coap"}, sent[1].Message)

	assert.Equal(t, 1, run(t, factories, "send", collection.ID, device.ID, "port", "x"))
	assert.Equal(t, cli.RunResultHelp, run(t, factories, "send", collection.ID))
}

func TestListenCommand(t *testing.T) {
	server, client, ui, factories := setup(t)
	collection, err := client.CreateCollection(model.Collection{})
	require.NoError(t, err)
	device, err := client.CreateDevice(collection.ID, model.Device{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd, err := factories["listen"]()
	require.NoError(t, err)
	cmd.(*listenCommand).ctx = ctx

	exit := make(chan int, 1)
	go func() {
		exit <- cmd.Run([]string{collection.ID, device.ID})
	}()
	require.NoError(t, server.AwaitStreams(1, 5*time.Second))

	_, err = server.PublishPayload(collection.ID, device.ID, []byte{1, 2, 3})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(ui.OutputWriter.String()) > 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, ui.OutputWriter.String(), device.ID+" AQID")

	cancel()
	select {
	case code := <-exit:
		assert.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("listen did not stop")
	}
}

func TestWebhookCommand(t *testing.T) {
	_, client, ui, factories := setup(t)
	collection, err := client.CreateCollection(model.Collection{})
	require.NoError(t, err)

	assert.Equal(t, 0, run(t, factories, "webhook", "-user=alice", "-password=pw", collection.ID, "https://example.com/hook"))
	assert.Contains(t, ui.OutputWriter.String(), "for https://example.com/hook as alice")
	assert.Equal(t, 0, run(t, factories, "webhook", collection.ID, "https://example.com/plain"))

	outputs, err := client.Outputs(collection.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	byURL := map[string]*model.WebHookOutput{}
	for _, o := range outputs {
		webhook, ok := o.(*model.WebHookOutput)
		require.True(t, ok, "unexpected output %T", o)
		assert.True(t, webhook.Enabled)
		byURL[webhook.Config.URL] = webhook
	}
	withAuth := byURL["https://example.com/hook"]
	require.NotNil(t, withAuth)
	assert.Equal(t, "alice", *withAuth.Config.BasicAuthUser)
	assert.Equal(t, "pw", *withAuth.Config.BasicAuthPass)
	assert.Nil(t, withAuth.Config.CustomHeaderName)

	plain := byURL["https://example.com/plain"]
	require.NotNil(t, plain)
	assert.Nil(t, plain.Config.BasicAuthUser)
	assert.Nil(t, plain.Config.BasicAuthPass)

	assert.Equal(t, cli.RunResultHelp, run(t, factories, "webhook", collection.ID))
}
