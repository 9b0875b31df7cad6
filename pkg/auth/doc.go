// Package auth answers "who is calling" for the gatekeeper.
//
// # Overview
//
// The package contains the credential primitives shared by human and machine
// authentication:
//
//   - CredentialHasher generates gk_ API keys and stores them as salted scrypt
//     hashes compared in constant time.
//   - TokenVerifier validates identity-provider bearer tokens against the
//     provider's published key set, relaxing claim checks through a fixed
//     ladder (strict, issuer-only, signature-only) when the provider's
//     issuer or audience values drift.
//   - IdentityExtractor runs an ordered chain of strategies (trusted gateway
//     headers, bearer token, development fallback) and returns the first
//     applicable identity.
//   - Role helpers rank admin > agent > user and decide resource ownership.
//
// # Token verification
//
//	verifier := auth.NewTokenVerifier(auth.VerifierConfig{
//		IssuerURL: "https://idp.example.com/realms/ops",
//		Audience:  "ops-api",
//	}, logger)
//	if err := verifier.Initialize(ctx); err != nil {
//		return err
//	}
//	claims, err := verifier.Verify(ctx, rawToken)
//
// Initialize performs discovery exactly once; the resulting issuer and key
// set are published as an immutable snapshot and shared by all requests.
//
// # API keys
//
//	hasher := auth.NewCredentialHasher()
//	key, _ := hasher.GenerateKey()   // gk_<base64url(32 bytes)>, shown once
//	stored, _ := hasher.Hash(key)    // <salt>:<hash>, persisted
//	ok := hasher.Verify(key, stored)
//
// Plaintext keys and bearer tokens are never logged.
package auth
