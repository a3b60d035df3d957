package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
)

const (
	// DefaultBaseURL is the public market-data endpoint; it serves klines
	// without authentication.
	DefaultBaseURL = "https://data-api.binance.com"

	klinesPath     = "/api/v3/klines"
	maxPageLimit   = 1000
	requestTimeout = 15 * time.Second
)

// APIError is a well-formed error payload returned by the API in place
// of a klines list. It is distinct from a transport error but retried
// the same way.
type APIError struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

func (ae *APIError) Error() string {
	return fmt.Sprintf("binance api error [%v]: [%v]", ae.Code, ae.Msg)
}

// Client fetches raw kline pages over HTTP. It implements
// ohlcv.KlineSource.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *Client) Klines(
	ctx context.Context,
	query *ohlcv.KlineQuery,
) ([]ohlcv.RawKline, error) {
	limit := query.Limit
	if limit <= 0 || limit > maxPageLimit {
		limit = maxPageLimit
	}

	params := url.Values{}
	params.Set("symbol", query.Symbol)
	params.Set("interval", string(query.Interval))
	params.Set("limit", strconv.Itoa(limit))

	if !query.StartTime.IsZero() {
		params.Set(
			"startTime",
			strconv.FormatInt(query.StartTime.UnixMilli(), 10),
		)
	}

	if !query.EndTime.IsZero() {
		params.Set(
			"endTime",
			strconv.FormatInt(query.EndTime.UnixMilli(), 10),
		)
	}

	requestURL := c.baseURL + klinesPath + "?" + params.Encode()

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		requestURL,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("could not create klines request: [%v]", err)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not perform klines request: [%v]", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read klines response: [%v]", err)
	}

	// Application errors arrive as an object even with a 200 status.
	if isObjectPayload(body) {
		var apiError APIError
		if err := json.Unmarshal(body, &apiError); err == nil {
			return nil, &apiError
		}

		return nil, fmt.Errorf(
			"unexpected klines response payload: [%s]",
			body,
		)
	}

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"unexpected klines response status [%v]",
			response.StatusCode,
		)
	}

	var rows []ohlcv.RawKline
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("could not parse klines response: [%v]", err)
	}

	return rows, nil
}

func isObjectPayload(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
