// Package auth authenticates end users against an external OAuth2/OIDC-style
// identity provider and validates the bearer tokens it issues.
//
// The public surface intentionally stays small. A TokenVerifier validates an
// inbound bearer token string and returns the Identity it asserts; a
// SessionAuthenticator orchestrates login, registration and "who am I" on
// top of a provider.Client and a TokenVerifier. The transport layer is
// responsible for moving the token in and out of cookies and mapping the
// sentinel errors onto HTTP statuses.
//
// # Token verification
//
// NewVerifier builds a verifier for issuers that publish their key set at
// the conventional {issuer}/.well-known/jwks.json location (Cognito does).
// Keys are fetched lazily, cached per kid, and refetched after a
// configurable TTL so provider key rotation is eventually picked up.
// NewVerifierFromDiscovery instead resolves jwks_uri via OpenID Connect
// discovery and keeps the key set fresh automatically.
//
// Example:
//
//	verifier, err := auth.NewVerifier(issuer, auth.WithLeeway(30*time.Second))
//	if err != nil { log.Fatal(err) }
//
//	id, err := verifier.Verify(ctx, bearerToken)
//	if errors.Is(err, auth.ErrInvalidToken) { /* map to 401 */ }
//
// Only RS256 is accepted by default. Use WithAllowedAlgs to broaden the set;
// symmetric algorithms should never be added for provider-issued tokens.
//
// # Errors
//
// Verification failures never disclose which check failed: bad signature,
// unknown key, issuer mismatch and expiry all surface as ErrInvalidToken.
// Login failures likewise collapse into ErrInvalidCredentials. Registration
// rejections are the exception: they carry a ValidationError whose Kind
// guides user-facing remediation.
package auth
