package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const requestTimeout = 3 * time.Minute

type client struct {
	baseURL string
	http    *http.Client
}

func getClient(ctx *cli.Context) (*client, error) {
	addr, err := getRPCServer(ctx)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return &client{
		baseURL: strings.TrimSuffix(addr, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}, nil
}

func (c *client) do(method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("unable to connect to RPC server: %w", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		errResp := struct {
			Error string `json:"error"`
		}{}
		if err := json.Unmarshal(buf, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("%s", http.StatusText(resp.StatusCode))
	}
	if out == nil || len(buf) <= 0 {
		return nil
	}
	return json.Unmarshal(buf, out)
}
