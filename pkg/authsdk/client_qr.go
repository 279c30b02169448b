package authsdk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GenerateQRCode starts a cross-device login.
func (c *SDKClient) GenerateQRCode(ctx context.Context) (*QRCodeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/qr-code/generate", nil, nil)
	if err != nil {
		return nil, err
	}

	var out QRCodeResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCodeStatus polls a code. Unknown codes report NOT_FOUND.
func (c *SDKClient) QRCodeStatus(ctx context.Context, code string) (*QRCodeStatusResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/qr-code/"+url.PathEscape(code)+"/status", nil, nil)
	if err != nil {
		return nil, err
	}

	var out QRCodeStatusResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// QRCodeImage downloads the PNG rendering of a code.
func (c *SDKClient) QRCodeImage(ctx context.Context, code string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/qr-code/"+url.PathEscape(code)+"/image", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp, body)
	}
	return body, nil
}
