package auth

import (
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractRoles merges the direct, realm and per-client role claims into an
// order-preserving set. Direct roles come first, then realm roles, then
// client roles ordered by client name.
func ExtractRoles(claims *TokenClaims) []string {
	if claims == nil {
		return nil
	}

	merged := make([]string, 0, len(claims.Roles)+len(claims.RealmRoles))
	merged = append(merged, claims.Roles...)
	merged = append(merged, claims.RealmRoles...)

	clients := make([]string, 0, len(claims.ResourceRoles))
	for client := range claims.ResourceRoles {
		clients = append(clients, client)
	}
	sort.Strings(clients)
	for _, client := range clients {
		merged = append(merged, claims.ResourceRoles[client]...)
	}

	return dedupe(merged)
}

// ClaimsFromMap converts a decoded payload into TokenClaims
func ClaimsFromMap(m jwt.MapClaims) *TokenClaims {
	c := &TokenClaims{Raw: m}

	c.Subject, _ = m.GetSubject()
	c.Issuer, _ = m.GetIssuer()
	if aud, err := m.GetAudience(); err == nil {
		c.Audience = []string(aud)
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}

	c.Email = stringClaim(m, "email")
	c.PreferredUsername = stringClaim(m, "preferred_username")
	c.Name = stringClaim(m, "name")

	c.Roles = stringList(m["roles"])
	if realm, ok := m["realm_access"].(map[string]interface{}); ok {
		c.RealmRoles = stringList(realm["roles"])
	}
	if resources, ok := m["resource_access"].(map[string]interface{}); ok {
		c.ResourceRoles = make(map[string][]string, len(resources))
		for client, v := range resources {
			entry, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			if roles := stringList(entry["roles"]); len(roles) > 0 {
				c.ResourceRoles[client] = roles
			}
		}
	}

	return c
}

// Expired reports whether the token is past its expiry at now
func (c *TokenClaims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

func stringClaim(m jwt.MapClaims, key string) string {
	s, _ := m[key].(string)
	return s
}

// stringList accepts a JSON array of strings or a single string
func stringList(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// dedupe trims entries, drops empties and keeps the first occurrence
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
