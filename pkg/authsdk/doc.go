/*
Package authsdk provides a client SDK for the patchnotes authentication service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: public endpoints (register, login, QR codes, health) and
    creation of authenticated sessions
  - Session: authenticated operations, carrying the AccessToken and
    RefreshToken cookies

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "ada", "correct horse battery")
	if authsdk.IsStatus(err, http.StatusUnauthorized) {
		// bad credentials
	}

	me, err := session.Me(ctx)

The server refreshes an expired access token transparently when the request
also carries a valid refresh token. Sessions adopt the rotated cookies from
every response, so callers normally never call Refresh themselves.

# Cross-device login with QR codes

One device generates a code and shows it; a signed-in device confirms it; the
first device then exchanges the code for its own session:

	qr, err := client.GenerateQRCode(ctx)
	// ... show qr.Code, poll client.QRCodeStatus or subscribe over the websocket
	err = phoneSession.ConfirmQRCode(ctx, qr.Code)
	desktop, err := client.LoginWithQRCode(ctx, qr.Code)

# API keys

Every user has an API key. Services can authenticate with it instead of
cookies:

	svc := client.NewAPIKeySession(apiKey)
	me, err := svc.Me(ctx)

# Errors

Non-2xx responses are returned as *APIError carrying the HTTP status, the
status text and the server's message.
*/
package authsdk
