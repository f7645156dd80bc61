// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"github.com/relabs-tech/nbiot/core/model"
)

// CollectionData returns the stored data messages of all devices in a collection
func (c *Client) CollectionData(collectionID string, query model.DataQuery) ([]model.DataMessage, error) {
	return c.data(resourcePath("collections", collectionID, "data"), query)
}

// DeviceData returns the stored data messages of a device
func (c *Client) DeviceData(collectionID, deviceID string, query model.DataQuery) ([]model.DataMessage, error) {
	return c.data(resourcePath("collections", collectionID, "devices", deviceID, "data"), query)
}

func (c *Client) data(path string, query model.DataQuery) ([]model.DataMessage, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if values := query.Values(); len(values) > 0 {
		path += "?" + values.Encode()
	}
	var list struct {
		Messages []model.DataMessage `json:"messages"`
	}
	err := c.get(path, &list)
	return list.Messages, err
}

// Send sends a message to a device
func (c *Client) Send(collectionID, deviceID string, message model.DownstreamMessage) error {
	if err := message.Validate(); err != nil {
		return err
	}
	return c.create(resourcePath("collections", collectionID, "devices", deviceID, "to"), message, nil)
}

// Broadcast sends a message to all devices of a collection. Devices that could not be
// reached are listed in the result, see BroadcastResult.Err.
func (c *Client) Broadcast(collectionID string, message model.DownstreamMessage) (model.BroadcastResult, error) {
	var result model.BroadcastResult
	if err := message.Validate(); err != nil {
		return result, err
	}
	err := c.create(resourcePath("collections", collectionID, "to"), message, &result)
	return result, err
}
