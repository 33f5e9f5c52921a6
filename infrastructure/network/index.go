package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"shiftguard.io/infrastructure/logger"
)

// NetworkController is a thin JSON HTTP client. Timeouts are deliberately
// short; callers own their retry policy.
type NetworkController struct {
	BaseUrl string

	client *http.Client
}

func (nc *NetworkController) httpClient() *http.Client {
	if nc.client == nil {
		timeout := 10 * time.Second
		if raw := os.Getenv("HTTP_CLIENT_TIMEOUT_SEC"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				timeout = time.Duration(parsed) * time.Second
			}
		}
		nc.client = &http.Client{Timeout: timeout}
	}
	return nc.client
}

func (nc *NetworkController) Get(path string, headers *map[string]string) (*[]byte, *int, error) {
	return nc.do(http.MethodGet, path, headers, nil)
}

func (nc *NetworkController) Post(path string, headers *map[string]string, body any) (*[]byte, *int, error) {
	return nc.do(http.MethodPost, path, headers, body)
}

func (nc *NetworkController) Delete(path string, headers *map[string]string) (*[]byte, *int, error) {
	return nc.do(http.MethodDelete, path, headers, nil)
}

func (nc *NetworkController) do(method string, path string, headers *map[string]string, body any) (*[]byte, *int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, nc.BaseUrl+path, reader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if headers != nil {
		for key, value := range *headers {
			req.Header.Set(key, value)
		}
	}

	response, err := nc.httpClient().Do(req)
	if err != nil {
		logger.Error("http request failed", logger.LoggerOptions{
			Key:  "url",
			Data: nc.BaseUrl + path,
		}, logger.LoggerOptions{
			Key:  "error",
			Data: err,
		})
		var urlErr interface{ Timeout() bool }
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, nil, errors.New("request timed out")
		}
		return nil, nil, err
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &response.StatusCode, err
	}
	return &payload, &response.StatusCode, nil
}
