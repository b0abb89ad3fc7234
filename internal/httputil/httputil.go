// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the provider and the
// page fetcher.
package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// UserAgent is sent with every outbound request.
const UserAgent = "omnisense/0.1"

// maxErrorBody caps how much of a failed response body is kept in a StatusError.
const maxErrorBody = 1024

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Do sends req once and returns the response when the status is 2xx.
// Otherwise the body is read (up to 1 KiB), closed, and returned inside a
// *StatusError. The request is not retried. When client is nil
// http.DefaultClient is used.
func Do(client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil, &StatusError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
