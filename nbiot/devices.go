// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"github.com/relabs-tech/nbiot/core/model"
)

// Devices returns all devices of a collection
func (c *Client) Devices(collectionID string) ([]model.Device, error) {
	var list struct {
		Devices []model.Device `json:"devices"`
	}
	err := c.get(resourcePath("collections", collectionID, "devices"), &list)
	return list.Devices, err
}

// Device returns the device with id
func (c *Client) Device(collectionID, id string) (model.Device, error) {
	var device model.Device
	err := c.get(resourcePath("collections", collectionID, "devices", id), &device)
	return device, err
}

// CreateDevice creates a device in a collection
func (c *Client) CreateDevice(collectionID string, device model.Device) (model.Device, error) {
	var created model.Device
	err := c.create(resourcePath("collections", collectionID, "devices"), device, &created)
	return created, err
}

// UpdateDevice updates the device with device.ID. If device.CollectionID differs from
// collectionID, the device moves to that collection.
func (c *Client) UpdateDevice(collectionID string, device model.Device) (model.Device, error) {
	var updated model.Device
	err := c.update(resourcePath("collections", collectionID, "devices", device.ID), device, &updated)
	return updated, err
}

// DeleteDevice deletes a device
func (c *Client) DeleteDevice(collectionID, id string) error {
	return c.delete(resourcePath("collections", collectionID, "devices", id))
}

// DeleteDeviceTag removes the tag name from a device
func (c *Client) DeleteDeviceTag(collectionID, id, name string) error {
	return c.delete(resourcePath("collections", collectionID, "devices", id, "tags", name))
}
