// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/nbiot/core/model"
)

// Outputs returns all outputs of a collection. Each output is one of *model.WebHookOutput,
// *model.MQTTOutput, *model.IFTTTOutput or *model.UDPOutput.
func (c *Client) Outputs(collectionID string) ([]model.Output, error) {
	var list struct {
		Outputs []json.RawMessage `json:"outputs"`
	}
	if err := c.get(resourcePath("collections", collectionID, "outputs"), &list); err != nil {
		return nil, err
	}
	return model.UnmarshalOutputs(list.Outputs)
}

// Output returns the output with id
func (c *Client) Output(collectionID, id string) (model.Output, error) {
	var raw []byte
	if err := c.get(resourcePath("collections", collectionID, "outputs", id), &raw); err != nil {
		return nil, err
	}
	return model.UnmarshalOutput(raw)
}

// CreateOutput creates an output in a collection. The output is validated against the
// schema of its type before it is sent. CollectionID of output is set to collectionID.
func (c *Client) CreateOutput(collectionID string, output model.Output) (model.Output, error) {
	return c.sendOutput(c.create, resourcePath("collections", collectionID, "outputs"), collectionID, output)
}

// UpdateOutput updates the output with the ID of output. The output is validated against
// the schema of its type before it is sent. CollectionID of output is set to collectionID.
func (c *Client) UpdateOutput(collectionID string, output model.Output) (model.Output, error) {
	return c.sendOutput(c.update, resourcePath("collections", collectionID, "outputs", output.Base().ID), collectionID, output)
}

func (c *Client) sendOutput(send func(string, interface{}, interface{}) error, path, collectionID string, output model.Output) (model.Output, error) {
	if output == nil {
		return nil, fmt.Errorf("output is missing")
	}
	output.Base().CollectionID = collectionID
	if err := c.validator.ValidateOutput(output); err != nil {
		return nil, err
	}
	body, err := model.MarshalOutput(output)
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := send(path, body, &raw); err != nil {
		return nil, err
	}
	return model.UnmarshalOutput(raw)
}

// DeleteOutput deletes an output
func (c *Client) DeleteOutput(collectionID, id string) error {
	return c.delete(resourcePath("collections", collectionID, "outputs", id))
}

// DeleteOutputTag removes the tag name from an output
func (c *Client) DeleteOutputTag(collectionID, id, name string) error {
	return c.delete(resourcePath("collections", collectionID, "outputs", id, "tags", name))
}

// OutputLogs returns the error log of an output
func (c *Client) OutputLogs(collectionID, id string) ([]model.OutputLogEntry, error) {
	var logs []model.OutputLogEntry
	err := c.get(resourcePath("collections", collectionID, "outputs", id, "logs"), &logs)
	return logs, err
}

// OutputStatus returns the forwarding counters of an output
func (c *Client) OutputStatus(collectionID, id string) (model.OutputStatus, error) {
	var status model.OutputStatus
	err := c.get(resourcePath("collections", collectionID, "outputs", id, "status"), &status)
	return status, err
}
