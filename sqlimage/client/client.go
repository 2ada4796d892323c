package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

// CallHost delivers a JSON request payload to the host and returns its JSON
// response payload.
type CallHost func(requestPayload []byte) (responsePayload []byte, err error)

// Client issues typed requests through a CallHost function.
type Client struct {
	call CallHost
}

// New returns a Client that sends every request through call.
func New(call CallHost) *Client {
	return &Client{call: call}
}

func (c *Client) do(req types.Request) (*types.Response, error) {
	if c.call == nil {
		return nil, errors.New("sqlimage: CallHost function is not set")
	}

	reqPayload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sqlimage: failed to marshal %s request: %w", req.Command, err)
	}

	respPayload, err := c.call(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("sqlimage: CallHost for %s failed: %w", req.Command, err)
	}

	var resp types.Response
	if err := json.Unmarshal(respPayload, &resp); err != nil {
		return nil, fmt.Errorf("sqlimage: failed to unmarshal %s response: %w", req.Command, err)
	}

	if resp.Error != "" {
		return nil, &types.Error{
			Type:    types.ParseErrorType(resp.ErrorType),
			Message: fmt.Sprintf("host %s error: %s", req.Command, resp.Error),
		}
	}
	return &resp, nil
}

func (c *Client) image(req types.Request) (types.Image, error) {
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Image, nil
}

// CreateEmpty returns the image of an empty database.
func (c *Client) CreateEmpty() (types.Image, error) {
	return c.image(types.Request{Command: types.CommandCreateEmpty})
}

// Init runs script against an empty database.
func (c *Client) Init(script string) (types.Image, error) {
	return c.image(types.Request{Command: types.CommandInit, SQL: script})
}

// Import reads a database file on the host.
func (c *Client) Import(path string) (types.Image, error) {
	return c.image(types.Request{Command: types.CommandImport, Path: path})
}

// Export writes image to a database file on the host.
func (c *Client) Export(image types.Image, path string) (bool, error) {
	resp, err := c.do(types.Request{Command: types.CommandExport, Image: image, Path: path})
	if err != nil {
		return false, err
	}
	return resp.OK, nil
}

// Execute runs script against image and returns the new image.
func (c *Client) Execute(image types.Image, script string) (types.Image, error) {
	return c.image(types.Request{Command: types.CommandExecute, Image: image, SQL: script})
}

// Vacuum rebuilds image.
func (c *Client) Vacuum(image types.Image) (types.Image, error) {
	return c.image(types.Request{Command: types.CommandVacuum, Image: image})
}

// Query runs a read-only statement against image.
func (c *Client) Query(image types.Image, statement string) ([]types.Row, error) {
	resp, err := c.do(types.Request{Command: types.CommandQuery, Image: image, SQL: statement})
	if err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		return []types.Row{}, nil
	}
	return resp.Rows, nil
}

// ListTables returns the table names in image.
func (c *Client) ListTables(image types.Image) ([]string, error) {
	return c.names(types.Request{Command: types.CommandListTables, Image: image})
}

// Schema returns the DDL statements in image.
func (c *Client) Schema(image types.Image) ([]string, error) {
	return c.names(types.Request{Command: types.CommandSchema, Image: image})
}

func (c *Client) names(req types.Request) ([]string, error) {
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.Names == nil {
		return []string{}, nil
	}
	return resp.Names, nil
}

// CountRows returns the number of rows in table.
func (c *Client) CountRows(image types.Image, table string) (int64, error) {
	resp, err := c.do(types.Request{Command: types.CommandCountRows, Image: image, Table: table})
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}
