// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package model contains the resources of the NB-IoT API and their JSON wire representation.

All resources are plain values. The JSON tags carry the wire names of the API, which are
camelCase, for example

	{
	  "deviceId": "17dh0cf43jg007",
	  "collectionId": "17dh0cf43jfz2q",
	  "imsi": "242016000001234",
	  "imei": "357517080049826",
	  "tags": { "name": "lamp post 12" }
	}

Optional fields are omitted from the JSON document when they are empty, so decoding an
encoded resource always yields the original value.

Outputs

An output forwards the data of a collection to somewhere else. There are four kinds of
outputs: webhook, mqtt, ifttt and udp. They share the Output interface and are told apart
by the "type" property of the wire document. The kind specific settings are in the nested
"config" object:

	{
	  "outputId": "17dh0cf43jg0ab",
	  "collectionId": "17dh0cf43jfz2q",
	  "type": "mqtt",
	  "config": {
	    "endpoint": "mqtt://broker.example.com:1883",
	    "clientId": "nbiot",
	    "topicName": "devices/data"
	  },
	  "enabled": true
	}

Use UnmarshalOutput to decode an output of unknown kind. An unknown type yields an
*UnknownOutputTypeError.

Data messages

A DataMessage is an upstream message from a device. On the wire the payload is base64
encoded and the reception time is in milliseconds since the epoch; in memory the payload
is raw bytes and the reception time is a time.Time in UTC.
*/
package model
