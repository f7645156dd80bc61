// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package nbiot is a client for the NB-IoT device management API.

A client is created from an explicit address and token

	c, err := nbiot.New(&nbiot.Builder{
		Address: "https://api.nbiot.telenor.io",
		Token:   token,
	})

or from the configuration file and the environment

	resolver, err := config.NewOsResolver()
	...
	c, err := nbiot.NewFromConfig(resolver)

The client manages teams, collections, devices and outputs with plain REST calls, and
opens output streams that deliver the data of a collection or a device as it arrives.
*/
package nbiot

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/nbiot/core/client"
	"github.com/relabs-tech/nbiot/core/config"
	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/core/schema"
)

// Builder is a builder helper for the Client
type Builder struct {
	// Address is the base address of the API. If empty, config.DefaultAddress is used.
	Address string
	// Token is the API token. This is mandatory.
	Token string
	// HTTPClient is used for REST requests. This is optional.
	HTTPClient *http.Client
	// Router serves REST requests in-process instead of HTTP. This is optional. Output
	// streams cannot be served in-process and are opened against Address, so Address is
	// mandatory when Router is set.
	Router *mux.Router
	// Dialer is used to open output streams. This is optional.
	Dialer *websocket.Dialer
	// SkipPing skips the reachability check in New.
	SkipPing bool
}

// Client is the entry point to the API. It is safe for concurrent use.
type Client struct {
	client    client.Client
	address   string
	dialer    *websocket.Dialer
	validator *schema.Validator
}

// New creates a new client. Unless SkipPing is set, it checks that the API is reachable.
func New(b *Builder) (*Client, error) {
	if b.Token == "" {
		return nil, errors.New("token is missing")
	}
	if b.Router != nil && b.Address == "" {
		return nil, errors.New("address is missing, it is required with a router")
	}
	address := strings.TrimSuffix(b.Address, "/")
	if address == "" {
		address = config.DefaultAddress
	}
	if _, err := url.Parse(address); err != nil {
		return nil, err
	}

	validator, err := schema.OutputValidator()
	if err != nil {
		return nil, err
	}

	var rc client.Client
	if b.Router != nil {
		rc = client.NewWithRouter(b.Router)
	} else {
		rc = client.NewWithURL(address).WithHTTPClient(b.HTTPClient)
	}

	c := &Client{
		client:    rc.WithToken(b.Token),
		address:   address,
		dialer:    b.Dialer,
		validator: validator,
	}
	if !b.SkipPing {
		if err := c.Ping(); err != nil {
			return nil, err
		}
	}
	logger.Default().Debugf("nbiot client for %s ready", address)
	return c, nil
}

// NewFromConfig creates a new client with the address and token resolved by r
func NewFromConfig(r config.Resolver) (*Client, error) {
	cfg, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return New(&Builder{Address: cfg.Address, Token: cfg.Token})
}

// Address returns the base address of the API
func (c *Client) Address() string {
	return c.address
}

// Token returns the API token
func (c *Client) Token() string {
	return c.client.Token()
}

// WithContext returns a new client which uses ctx for all requests and output streams
func (c *Client) WithContext(ctx context.Context) *Client {
	cc := *c
	cc.client = c.client.WithContext(ctx)
	return &cc
}

// Ping checks that the API is reachable. The root of the API answers 403 to a valid
// request, which counts as success.
func (c *Client) Ping() error {
	err := c.client.Request(http.MethodGet, "/", nil, nil)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		return nil
	}
	return err
}

func (c *Client) get(path string, result interface{}) error {
	return c.client.Request(http.MethodGet, path, nil, result)
}

func (c *Client) create(path string, body interface{}, result interface{}) error {
	return c.client.Request(http.MethodPost, path, body, result)
}

func (c *Client) update(path string, body interface{}, result interface{}) error {
	return c.client.Request(http.MethodPatch, path, body, result)
}

func (c *Client) delete(path string) error {
	return c.client.Request(http.MethodDelete, path, nil, nil)
}

// resourcePath joins segments to a request path, escaping every segment
func resourcePath(segments ...string) string {
	var sb strings.Builder
	for _, s := range segments {
		sb.WriteString("/")
		sb.WriteString(url.PathEscape(s))
	}
	return sb.String()
}
