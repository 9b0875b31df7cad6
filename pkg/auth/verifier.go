package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

const tracerName = "github.com/platinummonkey/gatekeeper/pkg/auth"

// VerificationTier names a rung of the claim validation ladder
type VerificationTier string

const (
	TierStrict        VerificationTier = "strict"         // issuer + audience
	TierIssuerOnly    VerificationTier = "issuer_only"    // issuer, audience ignored
	TierSignatureOnly VerificationTier = "signature_only" // signature and expiry only
)

// VerificationRecorder receives the outcome of every verification attempt
type VerificationRecorder interface {
	RecordTokenVerification(tier, outcome string)
}

// VerifierConfig configures identity-provider token verification
type VerifierConfig struct {
	// IssuerURL is the identity provider's issuer. Discovery is fetched from
	// <IssuerURL>/.well-known/openid-configuration unless DiscoveryURL is set.
	IssuerURL string
	// DiscoveryURL overrides the discovery document location
	DiscoveryURL string
	// Audience is the expected aud value. Empty disables the audience check.
	Audience string
	// Leeway tolerates clock skew on exp/nbf
	Leeway time.Duration
	// HTTPClient is used for discovery and key set fetches
	HTTPClient *http.Client
}

// Validate checks the verifier configuration
func (c VerifierConfig) Validate() error {
	if c.IssuerURL == "" && c.DiscoveryURL == "" {
		return fmt.Errorf("issuer URL or discovery URL is required")
	}
	return nil
}

// discoveryURL returns the discovery document location
func (c VerifierConfig) discoveryURL() string {
	if c.DiscoveryURL != "" {
		return c.DiscoveryURL
	}
	return strings.TrimSuffix(c.IssuerURL, "/") + "/.well-known/openid-configuration"
}

type tier struct {
	name      VerificationTier
	validator *jwt.Validator
}

// discoverySnapshot is published once and never modified
type discoverySnapshot struct {
	issuer  string
	jwksURL string
	keySet  oidc.KeySet
	tiers   []tier
}

// TokenVerifier validates bearer tokens issued by the configured identity
// provider. It is safe for concurrent use once initialized.
type TokenVerifier struct {
	config   VerifierConfig
	log      *logrus.Logger
	recorder VerificationRecorder
	now      func() time.Time

	snapshot atomic.Pointer[discoverySnapshot]
	group    singleflight.Group
}

// VerifierOption customizes a TokenVerifier
type VerifierOption func(*TokenVerifier)

// WithRecorder reports verification outcomes to r
func WithRecorder(r VerificationRecorder) VerifierOption {
	return func(v *TokenVerifier) {
		v.recorder = r
	}
}

// WithClock overrides the time source used for expiry checks
func WithClock(now func() time.Time) VerifierOption {
	return func(v *TokenVerifier) {
		v.now = now
	}
}

// NewTokenVerifier creates a verifier. Initialize must be called before Verify.
func NewTokenVerifier(config VerifierConfig, log *logrus.Logger, opts ...VerifierOption) *TokenVerifier {
	if log == nil {
		log = logrus.New()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	v := &TokenVerifier{
		config: config,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Ready reports whether discovery has completed
func (v *TokenVerifier) Ready() bool {
	return v.snapshot.Load() != nil
}

// Issuer returns the discovered issuer, or "" before initialization
func (v *TokenVerifier) Issuer() string {
	if snap := v.snapshot.Load(); snap != nil {
		return snap.issuer
	}
	return ""
}

// Initialize fetches the discovery document and publishes the issuer and key
// set. Concurrent callers share one fetch; later calls are no-ops.
func (v *TokenVerifier) Initialize(ctx context.Context) error {
	if v.Ready() {
		return nil
	}

	_, err, _ := v.group.Do("discovery", func() (interface{}, error) {
		if v.Ready() {
			return nil, nil
		}

		doc, err := v.fetchDiscovery(ctx)
		if err != nil {
			return nil, err
		}

		if v.config.IssuerURL != "" && strings.TrimSuffix(doc.IssuerURL, "/") != strings.TrimSuffix(v.config.IssuerURL, "/") {
			v.log.WithFields(logrus.Fields{
				"configured_issuer": v.config.IssuerURL,
				"discovered_issuer": doc.IssuerURL,
			}).Warn("Discovered issuer differs from configured issuer")
		}

		keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.WithoutCancel(ctx), v.config.HTTPClient), doc.JWKSURL)
		v.publish(doc.IssuerURL, doc.JWKSURL, keySet)

		v.log.WithFields(logrus.Fields{
			"issuer":   doc.IssuerURL,
			"jwks_uri": doc.JWKSURL,
		}).Info("Token verifier initialized")
		return nil, nil
	})
	return err
}

// UseKeySet publishes a fixed issuer and key set without discovery
func (v *TokenVerifier) UseKeySet(issuer string, keySet oidc.KeySet) {
	v.publish(issuer, "", keySet)
}

func (v *TokenVerifier) publish(issuer, jwksURL string, keySet oidc.KeySet) {
	v.snapshot.CompareAndSwap(nil, &discoverySnapshot{
		issuer:  issuer,
		jwksURL: jwksURL,
		keySet:  keySet,
		tiers:   v.buildTiers(issuer),
	})
}

func (v *TokenVerifier) buildTiers(issuer string) []tier {
	base := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.config.Leeway),
		jwt.WithTimeFunc(func() time.Time { return v.now() }),
	}
	with := func(extra ...jwt.ParserOption) *jwt.Validator {
		opts := append(append([]jwt.ParserOption{}, base...), extra...)
		return jwt.NewValidator(opts...)
	}

	tiers := make([]tier, 0, 3)
	if v.config.Audience != "" {
		tiers = append(tiers, tier{TierStrict, with(jwt.WithIssuer(issuer), jwt.WithAudience(v.config.Audience))})
		tiers = append(tiers, tier{TierIssuerOnly, with(jwt.WithIssuer(issuer))})
	} else {
		tiers = append(tiers, tier{TierStrict, with(jwt.WithIssuer(issuer))})
	}
	tiers = append(tiers, tier{TierSignatureOnly, with()})
	return tiers
}

func (v *TokenVerifier) fetchDiscovery(ctx context.Context) (*oidc.ProviderConfig, error) {
	url := v.config.discoveryURL()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := v.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery document request returned status %d", resp.StatusCode)
	}

	var doc oidc.ProviderConfig
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	if doc.IssuerURL == "" {
		return nil, fmt.Errorf("discovery document is missing issuer")
	}
	if doc.JWKSURL == "" {
		return nil, fmt.Errorf("discovery document is missing jwks_uri")
	}

	return &doc, nil
}

// Verify checks the token signature against the key set and validates its
// claims through the tier ladder. A tier only falls through to the next on
// an issuer or audience failure; expiry is never relaxed.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string) (*TokenClaims, error) {
	snap := v.snapshot.Load()
	if snap == nil {
		return nil, errx.ErrNotInitialized
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "auth.VerifyToken")
	defer span.End()

	payload, err := snap.keySet.VerifySignature(ctx, rawToken)
	if err != nil {
		span.SetStatus(codes.Error, "signature verification failed")
		v.record("", "invalid_token")
		return nil, errx.Wrap(errx.ErrInvalidToken, err)
	}

	var mapClaims jwt.MapClaims
	if err := json.Unmarshal(payload, &mapClaims); err != nil {
		span.SetStatus(codes.Error, "malformed payload")
		v.record("", "invalid_token")
		return nil, errx.Wrap(errx.ErrInvalidToken, fmt.Errorf("failed to decode token payload: %w", err))
	}

	var lastErr error
	for _, t := range snap.tiers {
		err := t.validator.Validate(mapClaims)
		if err == nil {
			claims := ClaimsFromMap(mapClaims)
			if t.name != TierStrict {
				v.log.WithFields(logrus.Fields{
					"tier":    string(t.name),
					"subject": claims.Subject,
					"issuer":  claims.Issuer,
					"reason":  lastErr,
				}).Warn("Token accepted by relaxed verification tier")
			}
			span.SetAttributes(attribute.String("auth.tier", string(t.name)))
			v.record(t.name, "success")
			return claims, nil
		}

		if errors.Is(err, jwt.ErrTokenExpired) {
			span.SetStatus(codes.Error, "token expired")
			v.record(t.name, "expired")
			return nil, errx.Wrap(errx.ErrExpiredToken, err)
		}

		lastErr = err
		if !isRelaxable(err) {
			break
		}
	}

	span.SetStatus(codes.Error, "claim validation failed")
	v.record("", "claims_failed")
	return nil, errx.Wrap(errx.ErrClaimValidationFailed, lastErr)
}

// isRelaxable reports whether a later tier might accept a token that failed
// with err
func isRelaxable(err error) bool {
	return errors.Is(err, jwt.ErrTokenInvalidIssuer) ||
		errors.Is(err, jwt.ErrTokenInvalidAudience) ||
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing)
}

func (v *TokenVerifier) record(t VerificationTier, outcome string) {
	if v.recorder != nil {
		v.recorder.RecordTokenVerification(string(t), outcome)
	}
}
