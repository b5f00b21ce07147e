package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/retailops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/retailops-backend/pkg/errors"
)

const (
	tokenPath = "/oauth/v1/generate?grant_type=client_credentials"
	stkPath   = "/mpesa/stkpush/v1/processrequest"
	queryPath = "/mpesa/stkpushquery/v1/query"

	timestampLayout             = "20060102150405"
	responseBodyReadLimit int64 = 4096

	// stillProcessingCode is returned by the query endpoint while the customer
	// has not yet answered the prompt.
	stillProcessingCode = "500.001.1001"
)

var (
	errNotConfigured = errors.New("mpesa credentials are not configured")
	errCallbackURL   = errors.New("mpesa callback url is required")
)

// Observer receives one observation per gateway round trip.
type Observer interface {
	ObserveGateway(operation, outcome string, elapsed time.Duration)
}

// Client talks to the Daraja STK push API. Credentials come from the config
// struct handed to NewClient; nothing is read from the environment later.
type Client struct {
	httpClient *http.Client
	cfg        config.MpesaConfig
	baseURL    string
	now        func() time.Time
	observer   Observer

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(c *Client) {
		c.observer = obs
	}
}

func NewClient(cfg config.MpesaConfig, opts ...Option) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errNotConfigured
	}
	if strings.TrimSpace(cfg.CallbackURL) == "" {
		return nil, errCallbackURL
	}
	callbackURL, err := cfg.SignedCallbackURL()
	if err != nil {
		return nil, err
	}
	cfg.CallbackURL = callbackURL
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.TransactionType == "" {
		cfg.TransactionType = "CustomerPayBillOnline"
	}

	client := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.baseURL == "" {
		return nil, errors.New("mpesa base url is required")
	}
	return client, nil
}

// STKPushRequest is a payment prompt for a customer's phone. Amount is in
// whole currency units; the gateway does not accept fractions.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// QueryResult is the gateway's view of an STK push. Pending is set while the
// customer has not answered; ResultCode is meaningful only when it is false.
type QueryResult struct {
	Pending           bool
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
}

type gatewayError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Initiate sends the STK push. A nil error means the gateway accepted the
// request and will report the outcome asynchronously.
func (c *Client) Initiate(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	if req.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	started := c.now()
	resp, err := c.initiate(ctx, req)
	c.observe("stk_push", started, err)
	return resp, err
}

func (c *Client) initiate(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	body := map[string]any{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   c.cfg.TransactionType,
		"Amount":            req.Amount,
		"PartyA":            req.Phone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  truncate(req.AccountReference, 12),
		"TransactionDesc":   truncate(req.Description, 13),
	}

	status, raw, err := c.postJSON(ctx, stkPath, token, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError("stk push", status, raw)
	}

	var out STKPushResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "decode stk push response")
	}
	if out.ResponseCode != "0" {
		return nil, pkgerrors.New(pkgerrors.CodePaymentRejected, "stk push rejected").
			WithDetails(map[string]any{"response_code": out.ResponseCode, "description": out.ResponseDescription})
	}
	if out.CheckoutRequestID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeTransientGateway, "stk push response missing checkout request id")
	}
	return &out, nil
}

// Query asks the gateway for the current state of an STK push.
func (c *Client) Query(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "mpesa client not configured")
	}
	if strings.TrimSpace(checkoutRequestID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout request id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	started := c.now()
	res, err := c.query(ctx, checkoutRequestID)
	c.observe("stk_query", started, err)
	return res, err
}

func (c *Client) query(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	body := map[string]any{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	status, raw, err := c.postJSON(ctx, queryPath, token, body)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		var gwErr gatewayError
		if json.Unmarshal(raw, &gwErr) == nil && gwErr.ErrorCode == stillProcessingCode {
			return &QueryResult{Pending: true, CheckoutRequestID: checkoutRequestID, ResultDesc: gwErr.ErrorMessage}, nil
		}
		return nil, statusError("stk query", status, raw)
	}

	var apiResp struct {
		ResponseCode        string          `json:"ResponseCode"`
		ResponseDescription string          `json:"ResponseDescription"`
		MerchantRequestID   string          `json:"MerchantRequestID"`
		CheckoutRequestID   string          `json:"CheckoutRequestID"`
		ResultCode          json.RawMessage `json:"ResultCode"`
		ResultDesc          string          `json:"ResultDesc"`
	}
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "decode stk query response")
	}
	if apiResp.ResponseCode != "" && apiResp.ResponseCode != "0" {
		return nil, pkgerrors.New(pkgerrors.CodePaymentRejected, "stk query rejected").
			WithDetails(map[string]any{"response_code": apiResp.ResponseCode, "description": apiResp.ResponseDescription})
	}
	code, err := parseResultCode(apiResp.ResultCode)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "decode stk query result code")
	}

	return &QueryResult{
		MerchantRequestID: apiResp.MerchantRequestID,
		CheckoutRequestID: apiResp.CheckoutRequestID,
		ResultCode:        code,
		ResultDesc:        apiResp.ResultDesc,
	}, nil
}

// accessToken returns the cached OAuth token, fetching a new one when it is
// missing or inside the expiry skew window.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(tokenPath), nil)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build token request")
	}
	httpReq.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "execute token request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if resp.StatusCode != http.StatusOK {
		return "", statusError("token", resp.StatusCode, raw)
	}

	var apiResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.Unmarshal(raw, &apiResp); err != nil || apiResp.AccessToken == "" {
		return "", pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "decode token response")
	}
	seconds, err := strconv.Atoi(apiResp.ExpiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3599
	}

	c.token = apiResp.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(seconds)*time.Second - c.cfg.TokenExpirySkew)
	return c.token, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal gateway request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(payload))
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeTransientGateway, err, "read gateway response")
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))
}

func (c *Client) buildURL(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

func (c *Client) observe(operation string, started time.Time, err error) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodePaymentRejected):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	c.observer.ObserveGateway(operation, outcome, c.now().Sub(started))
}

// statusError maps an unexpected HTTP status: 5xx is transient, anything else
// is a rejection of the request itself.
func statusError(operation string, status int, raw []byte) error {
	cause := fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(raw)))
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return pkgerrors.Wrap(pkgerrors.CodeTransientGateway, cause, operation+" request failed")
	}
	details := map[string]any{"status": status}
	var gwErr gatewayError
	if json.Unmarshal(raw, &gwErr) == nil && gwErr.ErrorCode != "" {
		details["error_code"] = gwErr.ErrorCode
		details["error_message"] = gwErr.ErrorMessage
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentRejected, cause, operation+" request rejected").WithDetails(details)
}

// parseResultCode accepts both the string and numeric encodings the gateway
// uses for ResultCode.
func parseResultCode(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, errors.New("result code missing")
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	return value[:max]
}
