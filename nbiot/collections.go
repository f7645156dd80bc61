// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"github.com/relabs-tech/nbiot/core/model"
)

// Collections returns all collections the token has access to
func (c *Client) Collections() ([]model.Collection, error) {
	var list struct {
		Collections []model.Collection `json:"collections"`
	}
	err := c.get("/collections", &list)
	return list.Collections, err
}

// Collection returns the collection with id
func (c *Client) Collection(id string) (model.Collection, error) {
	var collection model.Collection
	err := c.get(resourcePath("collections", id), &collection)
	return collection, err
}

// CreateCollection creates a collection and returns it as stored by the API
func (c *Client) CreateCollection(collection model.Collection) (model.Collection, error) {
	var created model.Collection
	err := c.create("/collections", collection, &created)
	return created, err
}

// UpdateCollection updates the collection with collection.ID
func (c *Client) UpdateCollection(collection model.Collection) (model.Collection, error) {
	var updated model.Collection
	err := c.update(resourcePath("collections", collection.ID), collection, &updated)
	return updated, err
}

// DeleteCollection deletes a collection
func (c *Client) DeleteCollection(id string) error {
	return c.delete(resourcePath("collections", id))
}

// DeleteCollectionTag removes the tag name from a collection
func (c *Client) DeleteCollectionTag(id, name string) error {
	return c.delete(resourcePath("collections", id, "tags", name))
}

// SystemDefaults returns the field masks that apply to all collections
func (c *Client) SystemDefaults() (model.SystemDefaults, error) {
	var defaults model.SystemDefaults
	err := c.get("/system", &defaults)
	return defaults, err
}
