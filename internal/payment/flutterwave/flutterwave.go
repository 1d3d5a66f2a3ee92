package flutterwave

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid    = errors.New("flutterwave config invalid")
	ErrRequestFailed    = errors.New("flutterwave request failed")
	ErrResponseInvalid  = errors.New("flutterwave response invalid")
	ErrSignatureInvalid = errors.New("flutterwave signature invalid")
)

const (
	defaultAPIBaseURL      = "https://api.flutterwave.com"
	defaultTimeout         = 12 * time.Second
	defaultSignatureHeader = "flutterwave-signature"
	maxResponseBytes       = 1 << 20
)

// Status values normalized from provider responses
const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

// Config provider settings
type Config struct {
	SecretKey       string
	WebhookSecret   string
	SignatureHeader string
	APIBaseURL      string
	RedirectURL     string
	Timeout         time.Duration
}

// Customer payer details sent to hosted checkout
type Customer struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phonenumber"`
}

// CreateInput hosted checkout request
type CreateInput struct {
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	RedirectURL string
	Customer    Customer
	OrderID     string
}

// CreateResult hosted checkout link
type CreateResult struct {
	Link string
	Raw  map[string]interface{}
}

// VerifyResult authoritative transaction state
type VerifyResult struct {
	TransactionID string
	TxRef         string
	Status        string
	RawStatus     string
	Amount        decimal.Decimal
	Currency      string
	Raw           map[string]interface{}
}

// WebhookResult parsed webhook event. Amount and status are claims only.
type WebhookResult struct {
	Event         string
	TransactionID string
	TxRef         string
	Status        string
	Amount        string
	Currency      string
}

type createRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      json.Number       `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url"`
	Customer    Customer          `json:"customer"`
	Meta        map[string]string `json:"meta"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Normalize fills defaults and trims values
func (c *Config) Normalize() {
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.WebhookSecret = strings.TrimSpace(c.WebhookSecret)
	c.SignatureHeader = strings.TrimSpace(c.SignatureHeader)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	c.RedirectURL = strings.TrimSpace(c.RedirectURL)
	if c.SignatureHeader == "" {
		c.SignatureHeader = defaultSignatureHeader
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = defaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// ValidateConfig checks the settings needed for outbound calls and webhooks
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if cfg.SecretKey == "" {
		return fmt.Errorf("%w: secret_key is required", ErrConfigInvalid)
	}
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("%w: api_base_url is invalid", ErrConfigInvalid)
	}
	if cfg.RedirectURL != "" {
		if _, err := url.ParseRequestURI(cfg.RedirectURL); err != nil {
			return fmt.Errorf("%w: redirect_url is invalid", ErrConfigInvalid)
		}
	}
	return nil
}

// CreatePayment requests a hosted checkout link
func CreatePayment(ctx context.Context, cfg *Config, input CreateInput) (*CreateResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	txRef := strings.TrimSpace(input.TxRef)
	if txRef == "" {
		return nil, fmt.Errorf("%w: tx_ref is required", ErrConfigInvalid)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrConfigInvalid)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrConfigInvalid)
	}
	redirectURL := strings.TrimSpace(input.RedirectURL)
	if redirectURL == "" {
		redirectURL = cfg.RedirectURL
	}

	payload := createRequest{
		TxRef:       txRef,
		Amount:      json.Number(input.Amount.StringFixed(2)),
		Currency:    currency,
		RedirectURL: redirectURL,
		Customer:    input.Customer,
		Meta:        map[string]string{"order_id": input.OrderID},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
	}

	respBody, statusCode, err := doRequest(ctx, cfg, http.MethodPost, "/v3/payments", body)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(respBody)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 || !strings.EqualFold(env.Status, "success") {
		return nil, fmt.Errorf("%w: create payment status %d: %s", ErrResponseInvalid, statusCode, env.Message)
	}
	data, err := decodeRawMap(env.Data)
	if err != nil {
		return nil, err
	}
	link := readString(data, "link")
	if link == "" {
		return nil, fmt.Errorf("%w: missing payment link", ErrResponseInvalid)
	}
	return &CreateResult{Link: link, Raw: data}, nil
}

// VerifyTransaction reads the authoritative transaction state by provider id
func VerifyTransaction(ctx context.Context, cfg *Config, transactionID string) (*VerifyResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, fmt.Errorf("%w: transaction id is required", ErrConfigInvalid)
	}

	path := "/v3/transactions/" + url.PathEscape(transactionID) + "/verify"
	respBody, statusCode, err := doRequest(ctx, cfg, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope(respBody)
	if err != nil {
		return nil, err
	}
	if statusCode < 200 || statusCode >= 300 || !strings.EqualFold(env.Status, "success") {
		return nil, fmt.Errorf("%w: verify status %d: %s", ErrResponseInvalid, statusCode, env.Message)
	}
	data, err := decodeRawMap(env.Data)
	if err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(readString(data, "amount"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid amount", ErrResponseInvalid)
	}
	rawStatus := readString(data, "status")
	return &VerifyResult{
		TransactionID: readString(data, "id"),
		TxRef:         readString(data, "tx_ref"),
		Status:        MapTransactionStatus(rawStatus),
		RawStatus:     rawStatus,
		Amount:        amount,
		Currency:      strings.ToUpper(readString(data, "currency")),
		Raw:           data,
	}, nil
}

// VerifyAndParseWebhook checks the body signature and extracts the event reference
func VerifyAndParseWebhook(cfg *Config, headers http.Header, body []byte) (*WebhookResult, error) {
	if cfg == nil || cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook_secret is required", ErrConfigInvalid)
	}
	signature := strings.TrimSpace(headers.Get(cfg.SignatureHeader))
	if signature == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrSignatureInvalid, cfg.SignatureHeader)
	}
	expected := ComputeSignature(cfg.WebhookSecret, body)
	if !hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected)) {
		return nil, fmt.Errorf("%w: verify failed", ErrSignatureInvalid)
	}

	raw, err := decodeRawMap(body)
	if err != nil {
		return nil, err
	}
	data := readMap(raw, "data")
	if data == nil {
		return nil, fmt.Errorf("%w: missing data object", ErrResponseInvalid)
	}
	result := &WebhookResult{
		Event:         readString(raw, "event"),
		TransactionID: readString(data, "id"),
		TxRef:         readString(data, "tx_ref"),
		Status:        MapTransactionStatus(readString(data, "status")),
		Amount:        readString(data, "amount"),
		Currency:      strings.ToUpper(readString(data, "currency")),
	}
	if result.TxRef == "" {
		result.TxRef = readString(data, "reference")
	}
	if result.TxRef == "" {
		return nil, fmt.Errorf("%w: missing tx_ref", ErrResponseInvalid)
	}
	return result, nil
}

// ComputeSignature lowercase hex HMAC-SHA-512 of the raw body
func ComputeSignature(secret string, body []byte) string {
	h := hmac.New(sha512.New, []byte(secret))
	_, _ = h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// MapTransactionStatus normalizes provider transaction statuses
func MapTransactionStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "successful", "success", "completed":
		return StatusSuccess
	case "failed", "cancelled", "canceled", "error":
		return StatusFailed
	default:
		return StatusPending
	}
}

func doRequest(ctx context.Context, cfg *Config, method, path string, body []byte) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, cfg.APIBaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := (&http.Client{Timeout: cfg.Timeout}).Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrResponseInvalid)
	}
	return respBody, resp.StatusCode, nil
}

func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode response failed", ErrResponseInvalid)
	}
	return &env, nil
}

func decodeRawMap(body []byte) (map[string]interface{}, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrResponseInvalid)
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: decode body failed", ErrResponseInvalid)
	}
	return raw, nil
}

func readString(raw map[string]interface{}, key string) string {
	if raw == nil {
		return ""
	}
	value, ok := raw[key]
	if !ok || value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

func readMap(raw map[string]interface{}, key string) map[string]interface{} {
	if raw == nil {
		return nil
	}
	mapped, _ := raw[key].(map[string]interface{})
	return mapped
}
