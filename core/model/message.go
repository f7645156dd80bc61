// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package model

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
)

// MessageTypeData is the type property of upstream data messages
const MessageTypeData = "data"

// DataMessage is an upstream message received from a device
type DataMessage struct {
	Device   Device
	Payload  []byte
	Received time.Time
}

type dataMessageWire struct {
	Type     string `json:"type"`
	Device   Device `json:"device"`
	Payload  []byte `json:"payload"`
	Received int64  `json:"received"`
}

// MarshalJSON is a custom JSON marshaller
func (m DataMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(dataMessageWire{
		Type:     MessageTypeData,
		Device:   m.Device,
		Payload:  m.Payload,
		Received: toMillis(m.Received),
	})
}

// UnmarshalJSON is a custom JSON unmarshaller
func (m *DataMessage) UnmarshalJSON(data []byte) error {
	var w dataMessageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = DataMessage{
		Device:   w.Device,
		Payload:  w.Payload,
		Received: fromMillis(w.Received),
	}
	return nil
}

// DataQuery selects historical data messages. Zero values mean no restriction.
type DataQuery struct {
	Since time.Time
	Until time.Time
	Limit int
}

// Validate checks that the query is consistent
func (q DataQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Limit, validation.Min(0)),
		validation.Field(&q.Until, validation.By(func(value interface{}) error {
			until, _ := value.(time.Time)
			if !q.Since.IsZero() && !until.IsZero() && until.Before(q.Since) {
				return errors.New("must not be before since")
			}
			return nil
		})),
	)
}

// Values returns the query parameters for the data endpoints
func (q DataQuery) Values() url.Values {
	v := url.Values{}
	if !q.Since.IsZero() {
		v.Set("since", strconv.FormatInt(q.Since.UnixMilli(), 10))
	}
	if !q.Until.IsZero() {
		v.Set("until", strconv.FormatInt(q.Until.UnixMilli(), 10))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// DownstreamMessage is a message sent to a device
type DownstreamMessage struct {
	Port      int    `json:"port"`
	Payload   []byte `json:"payload"`
	Path      string `json:"coapPath,omitempty"`
	Transport string `json:"transport,omitempty"`
}

// Validate checks that the message can be delivered
func (m DownstreamMessage) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&m.Payload, validation.Required),
		validation.Field(&m.Transport, validation.In("udp", "coap", "udp-pull", "coap-pull")),
	)
}

// BroadcastResult is the outcome of a message broadcast to all devices of a collection
type BroadcastResult struct {
	Sent   int              `json:"sent"`
	Failed int              `json:"failed"`
	Errors []BroadcastError `json:"errors,omitempty"`
}

// BroadcastError is the failure to deliver a broadcast to a single device
type BroadcastError struct {
	DeviceID string `json:"deviceId"`
	Message  string `json:"message"`
}

func (e BroadcastError) Error() string {
	return fmt.Sprintf("device %s: %s", e.DeviceID, e.Message)
}

// Err returns nil if the broadcast reached every device, otherwise an error listing
// each failed device. The order of the devices is not significant.
func (r BroadcastResult) Err() error {
	var result *multierror.Error
	for _, e := range r.Errors {
		result = multierror.Append(result, e)
	}
	if result == nil && r.Failed > 0 {
		result = multierror.Append(result, fmt.Errorf("broadcast failed for %d devices", r.Failed))
	}
	return result.ErrorOrNil()
}
