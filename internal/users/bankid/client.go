// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package bankid

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// ClientConfig locates the relying-party credentials.
//
// CertPath holds either a PEM certificate (with KeyPath) or a PKCS#12 bundle
// (.p12/.pfx) decrypted with Passphrase. CACertPath pins the provider's CA.
type ClientConfig struct {
	BaseURL    string
	CertPath   string
	KeyPath    string
	CACertPath string
	Passphrase string
	Timeout    time.Duration
}

// Client talks to the BankID RP API over mutual TLS.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds the process-wide mutual TLS client.
func NewClient(config ClientConfig) (*Client, error) {
	certificate, err := loadCertificate(config)
	if err != nil {
		return nil, err
	}

	roots, err := loadCAPool(config.CACertPath)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		Certificates: []tls.Certificate{certificate},
		RootCAs:      roots,
		MinVersion:   tls.VersionTLS12,
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return NewClientWithHTTP(config.BaseURL, &http.Client{Transport: transport, Timeout: timeout}), nil
}

// NewClientWithHTTP uses a preconfigured HTTP client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func loadCertificate(config ClientConfig) (tls.Certificate, error) {
	lower := strings.ToLower(config.CertPath)
	if !strings.HasSuffix(lower, ".p12") && !strings.HasSuffix(lower, ".pfx") {
		certificate, err := tls.LoadX509KeyPair(config.CertPath, config.KeyPath)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("bankid: failed to load rp certificate: %w", err)
		}
		return certificate, nil
	}

	bundle, err := os.ReadFile(config.CertPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("bankid: failed to read rp bundle: %w", err)
	}

	blocks, err := pkcs12.ToPEM(bundle, config.Passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("bankid: failed to decrypt rp bundle: %w", err)
	}

	var encoded []byte
	for _, block := range blocks {
		encoded = append(encoded, pem.EncodeToMemory(block)...)
	}

	certificate, err := tls.X509KeyPair(encoded, encoded)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("bankid: failed to parse rp bundle: %w", err)
	}
	return certificate, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bankid: failed to read ca certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, errors.New("bankid: ca certificate contains no PEM certificates")
	}
	return pool, nil
}

// # Endpoints

// Auth starts an authentication order for the end user's IP address.
func (client *Client) Auth(context context.Context, endUserIP string) (*Order, error) {
	order := &Order{}
	if err := client.post(context, "/auth", map[string]string{"endUserIp": endUserIP}, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Collect fetches the current status of an order.
func (client *Client) Collect(context context.Context, orderRef string) (*CollectResult, error) {
	result := &CollectResult{}
	if err := client.post(context, "/collect", map[string]string{"orderRef": orderRef}, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel aborts a pending order.
func (client *Client) Cancel(context context.Context, orderRef string) error {
	return client.post(context, "/cancel", map[string]string{"orderRef": orderRef}, nil)
}

// post sends a JSON body and decodes a 200 answer into target.
// Any other status becomes a [*ProviderError].
func (client *Client) post(context context.Context, path string, body any, target any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("bankid: failed to encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, client.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("bankid: failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("bankid: %s request failed: %w", path, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		providerError := &ProviderError{StatusCode: response.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		_ = json.Unmarshal(raw, providerError)
		return providerError
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(target); err != nil {
		return fmt.Errorf("bankid: failed to decode %s response: %w", path, err)
	}
	return nil
}
