// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package model

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// OutputType is the discriminator of the output kinds
type OutputType string

// all supported output types
const (
	OutputTypeWebHook OutputType = "webhook"
	OutputTypeMQTT    OutputType = "mqtt"
	OutputTypeIFTTT   OutputType = "ifttt"
	OutputTypeUDP     OutputType = "udp"
)

// UnknownOutputTypeError is returned when an output document has a type this
// package does not know.
type UnknownOutputTypeError struct {
	Type string
}

func (e *UnknownOutputTypeError) Error() string {
	return fmt.Sprintf("unknown output type '%s'", e.Type)
}

// Output is one of *WebHookOutput, *MQTTOutput, *IFTTTOutput or *UDPOutput.
type Output interface {
	Type() OutputType
	Base() *OutputBase
	config() interface{}
}

// OutputBase holds the properties all outputs have in common
type OutputBase struct {
	ID           string
	CollectionID string
	Enabled      bool
	Tags         map[string]string
}

// Base returns the common properties of the output
func (b *OutputBase) Base() *OutputBase {
	return b
}

// WebHookOutput forwards data to a HTTP endpoint
type WebHookOutput struct {
	OutputBase
	Config WebHookConfig
}

// WebHookConfig is the configuration of a WebHookOutput
type WebHookConfig struct {
	URL               string  `json:"url"`
	BasicAuthUser     *string `json:"basicAuthUser,omitempty"`
	BasicAuthPass     *string `json:"basicAuthPass,omitempty"`
	CustomHeaderName  *string `json:"customHeaderName,omitempty"`
	CustomHeaderValue *string `json:"customHeaderValue,omitempty"`
}

// MQTTOutput publishes data to a MQTT broker
type MQTTOutput struct {
	OutputBase
	Config MQTTConfig
}

// MQTTConfig is the configuration of a MQTTOutput
type MQTTConfig struct {
	Endpoint         string  `json:"endpoint"`
	DisableCertCheck *bool   `json:"disableCertCheck,omitempty"`
	Username         *string `json:"username,omitempty"`
	Password         *string `json:"password,omitempty"`
	ClientID         string  `json:"clientId"`
	TopicName        string  `json:"topicName"`
}

// IFTTTOutput triggers an IFTTT webhook event
type IFTTTOutput struct {
	OutputBase
	Config IFTTTConfig
}

// IFTTTConfig is the configuration of an IFTTTOutput
type IFTTTConfig struct {
	Key         string `json:"key"`
	EventName   string `json:"eventName"`
	AsIsPayload bool   `json:"asIsPayload,omitempty"`
}

// UDPOutput forwards the raw payload as UDP datagrams
type UDPOutput struct {
	OutputBase
	Config UDPConfig
}

// UDPConfig is the configuration of an UDPOutput
type UDPConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Type implements Output
func (o *WebHookOutput) Type() OutputType { return OutputTypeWebHook }

// Type implements Output
func (o *MQTTOutput) Type() OutputType { return OutputTypeMQTT }

// Type implements Output
func (o *IFTTTOutput) Type() OutputType { return OutputTypeIFTTT }

// Type implements Output
func (o *UDPOutput) Type() OutputType { return OutputTypeUDP }

func (o *WebHookOutput) config() interface{} { return &o.Config }
func (o *MQTTOutput) config() interface{}    { return &o.Config }
func (o *IFTTTOutput) config() interface{}   { return &o.Config }
func (o *UDPOutput) config() interface{}     { return &o.Config }

// MarshalJSON is a custom JSON marshaller
func (o WebHookOutput) MarshalJSON() ([]byte, error) { return MarshalOutput(&o) }

// MarshalJSON is a custom JSON marshaller
func (o MQTTOutput) MarshalJSON() ([]byte, error) { return MarshalOutput(&o) }

// MarshalJSON is a custom JSON marshaller
func (o IFTTTOutput) MarshalJSON() ([]byte, error) { return MarshalOutput(&o) }

// MarshalJSON is a custom JSON marshaller
func (o UDPOutput) MarshalJSON() ([]byte, error) { return MarshalOutput(&o) }

// UnmarshalJSON is a custom JSON unmarshaller
func (o *WebHookOutput) UnmarshalJSON(data []byte) error { return unmarshalOutputInto(data, o) }

// UnmarshalJSON is a custom JSON unmarshaller
func (o *MQTTOutput) UnmarshalJSON(data []byte) error { return unmarshalOutputInto(data, o) }

// UnmarshalJSON is a custom JSON unmarshaller
func (o *IFTTTOutput) UnmarshalJSON(data []byte) error { return unmarshalOutputInto(data, o) }

// UnmarshalJSON is a custom JSON unmarshaller
func (o *UDPOutput) UnmarshalJSON(data []byte) error { return unmarshalOutputInto(data, o) }

type outputWire struct {
	ID           string            `json:"outputId,omitempty"`
	CollectionID string            `json:"collectionId,omitempty"`
	Type         OutputType        `json:"type"`
	Config       json.RawMessage   `json:"config"`
	Enabled      bool              `json:"enabled"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// NewOutput returns an empty output of the given type
func NewOutput(outputType OutputType) (Output, error) {
	switch outputType {
	case OutputTypeWebHook:
		return &WebHookOutput{}, nil
	case OutputTypeMQTT:
		return &MQTTOutput{}, nil
	case OutputTypeIFTTT:
		return &IFTTTOutput{}, nil
	case OutputTypeUDP:
		return &UDPOutput{}, nil
	default:
		return nil, &UnknownOutputTypeError{Type: string(outputType)}
	}
}

// MarshalOutput returns the wire representation of o
func MarshalOutput(o Output) ([]byte, error) {
	config, err := json.Marshal(o.config())
	if err != nil {
		return nil, fmt.Errorf("cannot marshal %s output config: %w", o.Type(), err)
	}
	b := o.Base()
	return json.Marshal(outputWire{
		ID:           b.ID,
		CollectionID: b.CollectionID,
		Type:         o.Type(),
		Config:       config,
		Enabled:      b.Enabled,
		Tags:         b.Tags,
	})
}

// UnmarshalOutput decodes an output of any type. It returns an *UnknownOutputTypeError
// if the type property is not one of the known output types.
func UnmarshalOutput(data []byte) (Output, error) {
	var w outputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	o, err := NewOutput(w.Type)
	if err != nil {
		return nil, err
	}
	return o, w.into(o)
}

// UnmarshalOutputs decodes a list of outputs of any type
func UnmarshalOutputs(raw []json.RawMessage) ([]Output, error) {
	outputs := make([]Output, 0, len(raw))
	for _, r := range raw {
		o, err := UnmarshalOutput(r)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	return outputs, nil
}

func unmarshalOutputInto(data []byte, o Output) error {
	var w outputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Type != o.Type() {
		return fmt.Errorf("cannot decode output of type '%s' into %s output", w.Type, o.Type())
	}
	return w.into(o)
}

func (w *outputWire) into(o Output) error {
	*o.Base() = OutputBase{
		ID:           w.ID,
		CollectionID: w.CollectionID,
		Enabled:      w.Enabled,
		Tags:         w.Tags,
	}
	if len(w.Config) == 0 || string(w.Config) == "null" {
		return nil
	}
	if err := json.Unmarshal(w.Config, o.config()); err != nil {
		return fmt.Errorf("cannot decode %s output config: %w", w.Type, err)
	}
	return nil
}

// OutputLogEntry is an entry in the error log of an output
type OutputLogEntry struct {
	Message  string
	Time     time.Time
	Repeated int
}

type outputLogEntryWire struct {
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Repeated  int    `json:"repeated,omitempty"`
}

// MarshalJSON is a custom JSON marshaller
func (e OutputLogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputLogEntryWire{Message: e.Message, Timestamp: toMillis(e.Time), Repeated: e.Repeated})
}

// UnmarshalJSON is a custom JSON unmarshaller
func (e *OutputLogEntry) UnmarshalJSON(data []byte) error {
	var w outputLogEntryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = OutputLogEntry{Message: w.Message, Time: fromMillis(w.Timestamp), Repeated: w.Repeated}
	return nil
}

// OutputStatus holds the forwarding counters of an output
type OutputStatus struct {
	ErrorCount int `json:"errorCount"`
	Forwarded  int `json:"forwarded"`
	Received   int `json:"received"`
	Retries    int `json:"retries"`
}
