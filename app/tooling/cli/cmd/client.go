package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "github.com/ardanlabs/naivechain/business/web/v1"
)

var client = http.Client{
	Timeout: 10 * time.Second,
}

// send is a helper function to send an HTTP request to the node. A non 2xx
// response is returned as an error carrying the node's error message.
func send(method string, path string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er v1.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return fmt.Errorf("node responded %s", resp.Status)
		}
		if len(er.Fields) > 0 {
			return fmt.Errorf("%s: %v", er.Error, er.Fields)
		}
		return errors.New(er.Error)
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
