package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/nbiot/core/model"
	"github.com/relabs-tech/nbiot/core/pointers"
)

func roundTrip[T any](t *testing.T, v T) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var decoded T
	require.NoError(t, json.Unmarshal(data, &decoded), string(data))
	assert.Equal(t, v, decoded, string(data))
}

func TestResourcesRoundTrip(t *testing.T) {
	roundTrip(t, model.Team{})
	roundTrip(t, model.Team{
		ID:      "t1",
		Members: []model.Member{{UserID: "u1", Role: model.RoleAdmin, Name: "Ada", Email: "ada@example.com"}, {UserID: "u2"}},
		Tags:    map[string]string{"name": "team"},
	})
	roundTrip(t, model.Invite{Code: "abc"})
	roundTrip(t, model.Invite{Code: "abc", CreatedAt: time.UnixMilli(1554112431123).UTC()})
	roundTrip(t, model.Collection{})
	roundTrip(t, model.Collection{
		ID:        "c1",
		TeamID:    "t1",
		FieldMask: &model.FieldMask{IMSI: true, Location: true},
		Tags:      map[string]string{"a": "b"},
	})
	roundTrip(t, model.Device{})
	roundTrip(t, model.Device{ID: "d1", CollectionID: "c1", IMSI: "12", IMEI: "34", Tags: map[string]string{"x": "y"}})
	roundTrip(t, model.SystemDefaults{ForcedFieldMask: model.FieldMask{MSISDN: true}})
	roundTrip(t, model.OutputStatus{ErrorCount: 1, Forwarded: 2, Received: 3, Retries: 4})
	roundTrip(t, model.OutputLogEntry{Message: "timeout", Time: time.UnixMilli(1554112431000).UTC(), Repeated: 3})
	roundTrip(t, model.DownstreamMessage{Port: 1234, Payload: []byte{0, 1, 2}})
	roundTrip(t, model.DownstreamMessage{Port: 5683, Payload: []byte("hi"), Path: "/led", Transport: "coap"})
	roundTrip(t, model.BroadcastResult{Sent: 2})
	roundTrip(t, model.BroadcastResult{Sent: 1, Failed: 1, Errors: []model.BroadcastError{{DeviceID: "d2", Message: "not connected"}}})
	roundTrip(t, model.DataMessage{})
	roundTrip(t, model.DataMessage{
		Device:   model.Device{ID: "d1", CollectionID: "c1"},
		Payload:  []byte{0xff, 0x00, 0x10},
		Received: time.UnixMilli(1554112431999).UTC(),
	})
}

func TestWireNames(t *testing.T) {
	data, err := json.Marshal(model.Device{ID: "d1", CollectionID: "c1", IMSI: "12", IMEI: "34"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"deviceId":"d1","collectionId":"c1","imsi":"12","imei":"34"}`, string(data))

	data, err = json.Marshal(model.Collection{ID: "c1", TeamID: "t1", FieldMask: &model.FieldMask{IMEI: true}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"collectionId":"c1","teamId":"t1","fieldMask":{"imsi":false,"imei":true,"location":false,"msisdn":false}}`, string(data))

	data, err = json.Marshal(model.DataMessage{
		Device:   model.Device{ID: "d1"},
		Payload:  []byte{1, 2},
		Received: time.UnixMilli(1000).UTC(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"data","device":{"deviceId":"d1"},"payload":"AQI=","received":1000}`, string(data))
}

func TestOutputsRoundTrip(t *testing.T) {
	outputs := []model.Output{
		&model.WebHookOutput{},
		&model.WebHookOutput{
			OutputBase: model.OutputBase{ID: "o1", CollectionID: "c1", Enabled: true, Tags: map[string]string{"a": "b"}},
			Config: model.WebHookConfig{
				URL:               "https://example.com/hook",
				BasicAuthUser:     pointers.To("user"),
				BasicAuthPass:     pointers.To(""),
				CustomHeaderName:  pointers.To("X-Secret"),
				CustomHeaderValue: pointers.To("s3cr3t"),
			},
		},
		&model.MQTTOutput{
			OutputBase: model.OutputBase{ID: "o2", CollectionID: "c1"},
			Config: model.MQTTConfig{
				Endpoint:         "mqtts://broker:8883",
				DisableCertCheck: pointers.Bool(false),
				Username:         pointers.To("u"),
				ClientID:         "client",
				TopicName:        "topic",
			},
		},
		&model.IFTTTOutput{Config: model.IFTTTConfig{Key: "abc", EventName: "def", AsIsPayload: true}},
		&model.UDPOutput{OutputBase: model.OutputBase{ID: "o4"}, Config: model.UDPConfig{Host: "10.0.0.1", Port: 4711}},
	}
	for _, o := range outputs {
		data, err := model.MarshalOutput(o)
		require.NoError(t, err)
		decoded, err := model.UnmarshalOutput(data)
		require.NoError(t, err, string(data))
		assert.Equal(t, o, decoded, string(data))

		// plain json.Marshal goes through the same wire format
		plain, err := json.Marshal(o)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(plain))
	}
}

func TestUnmarshalOutputDispatch(t *testing.T) {
	o, err := model.UnmarshalOutput([]byte(`{
		"outputId": "o1",
		"collectionId": "c1",
		"type": "mqtt",
		"config": {
			"endpoint": "mqtt://broker:1883",
			"disableCertCheck": true,
			"username": "user",
			"password": "pass",
			"clientId": "client",
			"topicName": "topic"
		}
	}`))
	require.NoError(t, err)
	mqtt, ok := o.(*model.MQTTOutput)
	require.True(t, ok, "expected *MQTTOutput, got %T", o)
	assert.Equal(t, "o1", mqtt.ID)
	assert.Equal(t, "c1", mqtt.CollectionID)
	assert.Equal(t, model.MQTTConfig{
		Endpoint:         "mqtt://broker:1883",
		DisableCertCheck: pointers.Bool(true),
		Username:         pointers.To("user"),
		Password:         pointers.To("pass"),
		ClientID:         "client",
		TopicName:        "topic",
	}, mqtt.Config)

	_, err = model.UnmarshalOutput([]byte(`{"outputId":"o1","type":"carrier-pigeon","config":{}}`))
	var unknown *model.UnknownOutputTypeError
	require.True(t, errors.As(err, &unknown), "unexpected error %v", err)
	assert.Equal(t, "carrier-pigeon", unknown.Type)

	_, err = model.UnmarshalOutputs([]json.RawMessage{
		json.RawMessage(`{"type":"udp","config":{"host":"h","port":1}}`),
		json.RawMessage(`{"type":"smoke-signal"}`),
	})
	assert.True(t, errors.As(err, &unknown))

	var udp model.UDPOutput
	err = json.Unmarshal([]byte(`{"type":"webhook","config":{"url":"x"}}`), &udp)
	assert.Error(t, err)
}

func TestDataQuery(t *testing.T) {
	since := time.UnixMilli(1000)
	until := time.UnixMilli(2000)

	q := model.DataQuery{Since: since, Until: until, Limit: 10}
	require.NoError(t, q.Validate())
	v := q.Values()
	assert.Equal(t, "1000", v.Get("since"))
	assert.Equal(t, "2000", v.Get("until"))
	assert.Equal(t, "10", v.Get("limit"))

	assert.Empty(t, model.DataQuery{}.Values().Encode())
	assert.NoError(t, model.DataQuery{}.Validate())
	assert.Error(t, model.DataQuery{Since: until, Until: since}.Validate())
	assert.Error(t, model.DataQuery{Limit: -1}.Validate())
}

func TestDownstreamMessageValidate(t *testing.T) {
	assert.NoError(t, model.DownstreamMessage{Port: 1234, Payload: []byte{1}}.Validate())
	assert.NoError(t, model.DownstreamMessage{Port: 5683, Payload: []byte{1}, Transport: "coap"}.Validate())
	assert.Error(t, model.DownstreamMessage{Payload: []byte{1}}.Validate())
	assert.Error(t, model.DownstreamMessage{Port: 70000, Payload: []byte{1}}.Validate())
	assert.Error(t, model.DownstreamMessage{Port: 1234}.Validate())
	assert.Error(t, model.DownstreamMessage{Port: 1234, Payload: []byte{1}, Transport: "pigeon"}.Validate())
}

func TestBroadcastResultErr(t *testing.T) {
	assert.NoError(t, model.BroadcastResult{Sent: 3}.Err())

	err := model.BroadcastResult{
		Sent:   1,
		Failed: 2,
		Errors: []model.BroadcastError{
			{DeviceID: "d1", Message: "offline"},
			{DeviceID: "d2", Message: "no route"},
		},
	}.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device d1: offline")
	assert.Contains(t, err.Error(), "device d2: no route")

	var be model.BroadcastError
	assert.True(t, errors.As(err, &be))

	assert.Error(t, model.BroadcastResult{Failed: 1}.Err())
}
