// Package client retrieves neighbourhood features from the Canton of Zurich
// WFS server.
package client

import (
	"io"
	"net/http"

	"github.com/kevinburke/quartiere"
	"github.com/kevinburke/rest"
)

type Client struct {
	Client *rest.Client
	Host   string

	Features *FeatureService
}

const Host = "https://maps.zh.ch"

// NewClient returns a new Client.
func NewClient() *Client {
	return NewClientWithHost(Host)
}

// NewClientWithHost returns a Client that talks to the WFS server at host
// instead of the default one.
func NewClientWithHost(host string) *Client {
	c := new(Client)
	c.Host = host
	c.Client = rest.NewClient("", "", host)

	c.Features = &FeatureService{client: c}
	return c
}

// NewRequest creates a new HTTP request to hit the given endpoint.
func (c *Client) NewRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := c.Client.NewRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "quartiere/"+quartiere.Version+" (github.com/kevinburke/quartiere) "+req.Header.Get("User-Agent"))
	return req, nil
}
