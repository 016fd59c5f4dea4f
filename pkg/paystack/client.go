// Package paystack wraps the Paystack REST API for charge initialization,
// verification, refunds, bank account resolution and transfer recipients.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/obiagwu/vendara-backend/pkg/config"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
	"github.com/obiagwu/vendara-backend/pkg/logger"
)

const (
	defaultBaseURL = "https://api.paystack.co"
	// Bounds memory per response, not payload shape: verify envelopes carry
	// sizeable log/customer/authorization blocks and must fit comfortably.
	responseBodyReadLimit int64 = 1 << 20
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client is a thin HTTP wrapper over the Paystack API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	secretKey      string
	callbackURL    string
	maxRetries     uint64
	retryBaseDelay time.Duration
	logg           *logger.Logger
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
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Paystack client from config.
func NewClient(cfg config.PaystackConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := &Client{
		secretKey:      key,
		baseURL:        defaultBaseURL,
		callbackURL:    strings.TrimSpace(cfg.CallbackURL),
		maxRetries:     uint64(cfg.MaxRetries),
		retryBaseDelay: cfg.RetryBaseDelay,
		httpClient:     &http.Client{Timeout: timeout},
		logg:           logg,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimSpace(cfg.BaseURL)
	}
	if client.retryBaseDelay <= 0 {
		client.retryBaseDelay = 500 * time.Millisecond
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// InitializeRequest starts a hosted checkout for an order charge.
type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Reference   string
}

// InitializeResult carries the hosted checkout handles.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// CardAuthorization is the reusable card token returned on a successful charge.
type CardAuthorization struct {
	AuthorizationCode string
	CardType          string
	Last4             string
	Signature         string
	Reusable          bool
}

// VerifyResult is the settled state of a transaction on the gateway.
type VerifyResult struct {
	Status        string
	Reference     string
	AmountMinor   int64
	GatewayRef    string
	Authorization CardAuthorization
}

// Succeeded reports whether the gateway settled the charge.
func (v VerifyResult) Succeeded() bool {
	return strings.EqualFold(v.Status, "success")
}

// RefundResult carries the gateway's view of a refund request.
type RefundResult struct {
	RefundedMinor int64
	DeductedMinor int64
	Status        string
}

// ResolvedAccount is the bank's record for an account number.
type ResolvedAccount struct {
	AccountName   string
	AccountNumber string
}

// RecipientResult carries the transfer recipient handle used for settlements.
type RecipientResult struct {
	RecipientCode string
}

// InitializeTransaction creates a pending charge and returns the checkout URL.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and reference are required")
	}
	if req.AmountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	body := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.call(ctx, http.MethodPost, "transaction/initialize", body, &data); err != nil {
		return nil, err
	}

	c.logInfo(ctx, "paystack transaction initialized", map[string]any{
		"reference":    req.Reference,
		"amount_minor": req.AmountMinor,
	})

	return &InitializeResult{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// VerifyTransaction fetches the gateway status for a charge reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	var data struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Auth      struct {
			AuthorizationCode string `json:"authorization_code"`
			CardType          string `json:"card_type"`
			Last4             string `json:"last4"`
			Signature         string `json:"signature"`
			Reusable          bool   `json:"reusable"`
		} `json:"authorization"`
	}
	path := "transaction/verify/" + url.PathEscape(trimmed)
	if err := c.call(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}

	return &VerifyResult{
		Status:      data.Status,
		Reference:   data.Reference,
		AmountMinor: data.Amount,
		GatewayRef:  fmt.Sprintf("%d", data.ID),
		Authorization: CardAuthorization{
			AuthorizationCode: data.Auth.AuthorizationCode,
			CardType:          data.Auth.CardType,
			Last4:             data.Auth.Last4,
			Signature:         data.Auth.Signature,
			Reusable:          data.Auth.Reusable,
		},
	}, nil
}

// CreateRefund requests a full or partial refund for a settled charge.
func (c *Client) CreateRefund(ctx context.Context, reference string, amountMinor int64) (*RefundResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}
	if amountMinor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	body := map[string]any{
		"transaction": trimmed,
		"amount":      amountMinor,
	}

	var data struct {
		Amount         int64  `json:"amount"`
		DeductedAmount int64  `json:"deducted_amount"`
		Status         string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "refund", body, &data); err != nil {
		return nil, err
	}

	c.logInfo(ctx, "paystack refund requested", map[string]any{
		"reference":    trimmed,
		"amount_minor": amountMinor,
	})

	return &RefundResult{
		RefundedMinor: data.Amount,
		DeductedMinor: data.DeductedAmount,
		Status:        data.Status,
	}, nil
}

// ResolveAccount asks the bank for the registered name on an account number.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}

	query := url.Values{}
	query.Set("account_number", accountNumber)
	query.Set("bank_code", bankCode)

	var data struct {
		AccountNumber string `json:"account_number"`
		AccountName   string `json:"account_name"`
	}
	if err := c.call(ctx, http.MethodGet, "bank/resolve?"+query.Encode(), nil, &data); err != nil {
		return nil, err
	}

	return &ResolvedAccount{
		AccountName:   data.AccountName,
		AccountNumber: data.AccountNumber,
	}, nil
}

// CreateTransferRecipient registers a payout destination for a vendor.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode string) (*RecipientResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(name) == "" || strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, account number and bank code are required")
	}

	body := map[string]any{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.call(ctx, http.MethodPost, "transferrecipient", body, &data); err != nil {
		return nil, err
	}

	c.logInfo(ctx, "paystack transfer recipient created", map[string]any{
		"account_last4": lastFour(accountNumber),
		"bank_code":     bankCode,
	})

	return &RecipientResult{RecipientCode: data.RecipientCode}, nil
}

// DeactivateTransferRecipient disables a previously created payout destination.
func (c *Client) DeactivateTransferRecipient(ctx context.Context, recipientCode string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(recipientCode)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient code is required")
	}

	path := "transferrecipient/" + url.PathEscape(trimmed)
	return c.call(ctx, http.MethodDelete, path, nil, nil)
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call executes one API request with bounded retries on transient failures.
// Every request carries a caller-chosen reference or is a read, so repeating
// it cannot double-charge.
func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal paystack request")
		}
		payload = encoded
	}

	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
			c.logWarn(ctx, "paystack request failed, retrying", map[string]any{
				"method": method,
				"path":   path,
				"error":  err.Error(),
			})
			return retry.RetryableError(err)
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paystack request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paystack request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read paystack response")
	}

	var envelope apiEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil && resp.StatusCode < http.StatusBadRequest {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.mapStatusError(resp.StatusCode, envelope.Message)
	}
	if !envelope.Status {
		return pkgerrors.New(pkgerrors.CodeGatewayDeclined, gatewayMessage(envelope.Message))
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack payload")
		}
	}
	return nil
}

// mapStatusError keeps the transient/permanent split: 5xx and throttling are
// retryable dependency failures, every other 4xx is a terminal decline.
func (c *Client) mapStatusError(status int, message string) error {
	if status >= http.StatusInternalServerError || status == http.StatusTooManyRequests {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("paystack unavailable (status %d): %s", status, gatewayMessage(message)))
	}
	return pkgerrors.New(pkgerrors.CodeGatewayDeclined, fmt.Sprintf("paystack rejected the request (status %d): %s", status, gatewayMessage(message)))
}

func gatewayMessage(message string) string {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return "no gateway message"
	}
	return trimmed
}

func lastFour(accountNumber string) string {
	trimmed := strings.TrimSpace(accountNumber)
	if len(trimmed) <= 4 {
		return trimmed
	}
	return trimmed[len(trimmed)-4:]
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
}

func (c *Client) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	c.logg.Info(c.logg.WithFields(ctx, fields), msg)
}

func (c *Client) logWarn(ctx context.Context, msg string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithFields(ctx, fields), msg)
}
