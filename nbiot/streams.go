// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"github.com/relabs-tech/nbiot/core/stream"
)

// CollectionOutputStream opens a stream with the data of all devices in a collection
func (c *Client) CollectionOutputStream(collectionID string) (*stream.OutputStream, error) {
	return c.outputStream(resourcePath("collections", collectionID))
}

// DeviceOutputStream opens a stream with the data of a single device
func (c *Client) DeviceOutputStream(collectionID, deviceID string) (*stream.OutputStream, error) {
	return c.outputStream(resourcePath("collections", collectionID, "devices", deviceID))
}

func (c *Client) outputStream(scope string) (*stream.OutputStream, error) {
	return stream.Dial(c.client.Context(), c.dialer, c.address, c.client.Token(), scope)
}
