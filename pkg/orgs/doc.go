// Package orgs provides tenant membership storage and per-request tenant
// resolution.
//
// # Overview
//
// Users belong to organizations through memberships; at most one membership
// per user is flagged as the default. Only active organizations take part in
// resolution.
//
// # Resolution order
//
// For every request the Resolver picks the tenant in this order:
//
//  1. The explicit X-Organization-Id header. The caller must be a member;
//     otherwise the request fails with ORGANIZATION_ACCESS_DENIED listing
//     the organizations that are available.
//  2. The membership flagged as default.
//  3. The only membership, if there is exactly one.
//  4. The first membership ordered by is_default DESC, name ASC.
//  5. No organization.
//
// Rules 3 and 4 set OrganizationContext.FallbackSelected so audit logs can
// tell a chosen tenant from a guessed one. Memberships are fetched at most
// once per request.
//
// # Default organization
//
// SetDefaultOrganization clears the old default and sets the new one in two
// separate statements. Two concurrent calls for the same user can interleave
// and leave zero or two defaults; the resolver handles both.
package orgs
