package paystack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/obiagwu/vendara-backend/pkg/config"
	pkgerrors "github.com/obiagwu/vendara-backend/pkg/errors"
)

func testConfig() config.PaystackConfig {
	return config.PaystackConfig{
		SecretKey:      "sk_test_abc",
		BaseURL:        "http://paystack.test",
		RequestTimeout: 5 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	}
}

func TestInitializeTransactionRequest(t *testing.T) {
	const expectedURL = "http://paystack.test/transaction/initialize"
	respBody := `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.paystack.test/abc","access_code":"abc","reference":"ORD-1A2B3C4D"}}`

	var capturedURL string
	var capturedAuth string
	var capturedBody map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedBody); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:       "buyer@example.com",
		AmountMinor: 9000,
		Reference:   "ORD-1A2B3C4D",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer sk_test_abc" {
		t.Fatalf("unexpected authorization header %q", capturedAuth)
	}
	if capturedBody["amount"] != float64(9000) {
		t.Fatalf("unexpected amount %v", capturedBody["amount"])
	}
	if capturedBody["reference"] != "ORD-1A2B3C4D" {
		t.Fatalf("unexpected reference %v", capturedBody["reference"])
	}
	if result.AuthorizationURL != "https://checkout.paystack.test/abc" {
		t.Fatalf("unexpected authorization url %q", result.AuthorizationURL)
	}
}

func TestVerifyTransactionDecodesAuthorization(t *testing.T) {
	respBody := `{"status":true,"message":"Verification successful","data":{"id":12345,"status":"success","reference":"ORD-1A2B3C4D","amount":9000,"authorization":{"authorization_code":"AUTH_xyz","card_type":"visa","last4":"4081","signature":"SIG_abc","reusable":true}}}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.VerifyTransaction(context.Background(), "ORD-1A2B3C4D")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if capturedURL != "http://paystack.test/transaction/verify/ORD-1A2B3C4D" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if !result.Succeeded() {
		t.Fatalf("expected success status, got %q", result.Status)
	}
	if result.AmountMinor != 9000 {
		t.Fatalf("unexpected amount %d", result.AmountMinor)
	}
	if result.GatewayRef != "12345" {
		t.Fatalf("unexpected gateway ref %q", result.GatewayRef)
	}
	if result.Authorization.AuthorizationCode != "AUTH_xyz" || result.Authorization.Last4 != "4081" {
		t.Fatalf("unexpected authorization %+v", result.Authorization)
	}
	if !result.Authorization.Reusable {
		t.Fatalf("expected reusable authorization")
	}
}

func TestServerErrorRetriesThenReportsDependency(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{
			StatusCode: http.StatusBadGateway,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"upstream error"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.VerifyTransaction(context.Background(), "ORD-RETRY")
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var attempts int
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"Duplicate Transaction Reference"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.InitializeTransaction(context.Background(), InitializeRequest{
		Email:       "buyer@example.com",
		AmountMinor: 100,
		Reference:   "ORD-DUP",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeGatewayDeclined) {
		t.Fatalf("expected gateway declined, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestResolveAccountBuildsQuery(t *testing.T) {
	respBody := `{"status":true,"message":"Account number resolved","data":{"account_number":"0001234567","account_name":"DOE JOHN A"}}`

	var capturedURL string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	resolved, err := client.ResolveAccount(context.Background(), "0001234567", "058")
	if err != nil {
		t.Fatalf("resolve account: %v", err)
	}
	if !strings.Contains(capturedURL, "bank/resolve?") || !strings.Contains(capturedURL, "account_number=0001234567") || !strings.Contains(capturedURL, "bank_code=058") {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if resolved.AccountName != "DOE JOHN A" {
		t.Fatalf("unexpected account name %q", resolved.AccountName)
	}
}

func TestDeclinedEnvelopeWithOKStatus(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status":false,"message":"Invalid key"}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.VerifyTransaction(context.Background(), "ORD-BADKEY")
	if !pkgerrors.HasCode(err, pkgerrors.CodeGatewayDeclined) {
		t.Fatalf("expected gateway declined, got %v", err)
	}
}

func TestVerifyTransactionDecodesLargeEnvelope(t *testing.T) {
	// Live verify payloads carry log/customer/authorization blocks well past
	// a few KiB; a truncating reader must not break a successful charge.
	padding := strings.Repeat(`{"type":"action","message":"Attempted to pay with card","time":12},`, 80)
	respBody := `{"status":true,"message":"Verification successful","data":{` +
		`"id":67890,"status":"success","reference":"ORD-5E6F7A8B","amount":9000,` +
		`"log":{"history":[` + strings.TrimSuffix(padding, ",") + `]},` +
		`"customer":{"email":"buyer@example.com","customer_code":"CUS_abcdef"},` +
		`"authorization":{"authorization_code":"AUTH_big","card_type":"visa","last4":"4081","signature":"SIG_big","reusable":true}}}`
	if len(respBody) <= 4096 {
		t.Fatalf("envelope too small to exercise the read limit: %d bytes", len(respBody))
	}

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient(testConfig(), nil, WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.VerifyTransaction(context.Background(), "ORD-5E6F7A8B")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != "success" {
		t.Fatalf("unexpected status %q", result.Status)
	}
	if result.Authorization.Signature != "SIG_big" {
		t.Fatalf("unexpected signature %q", result.Authorization.Signature)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
