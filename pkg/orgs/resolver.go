package orgs

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/gatekeeper/pkg/auth"
	"github.com/platinummonkey/gatekeeper/pkg/errx"
)

// HeaderOrganizationID selects a tenant explicitly
const HeaderOrganizationID = "X-Organization-Id"

// Resolver selects the tenant for a request
type Resolver struct {
	store MembershipLister
	log   *logrus.Logger
}

// NewResolver creates a tenant resolver
func NewResolver(store MembershipLister, log *logrus.Logger) *Resolver {
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{store: store, log: log}
}

// Session memoizes one user's memberships for the lifetime of a request.
// It must not be shared across requests.
type Session struct {
	resolver *Resolver
	user     *auth.UserContext

	once        sync.Once
	memberships []*Membership
	err         error
}

// NewSession starts a request-scoped resolution for user
func (r *Resolver) NewSession(user *auth.UserContext) *Session {
	return &Session{resolver: r, user: user}
}

// Resolve is shorthand for NewSession(user).Resolve(ctx, requestedOrgID)
func (r *Resolver) Resolve(ctx context.Context, user *auth.UserContext, requestedOrgID string) (*OrganizationContext, error) {
	return r.NewSession(user).Resolve(ctx, requestedOrgID)
}

// lookupEligible reports whether the user's id can key a membership lookup
func (s *Session) lookupEligible() bool {
	if s.user == nil {
		return false
	}
	_, err := uuid.Parse(s.user.UserID)
	return err == nil
}

// Memberships returns the user's active memberships ordered default first,
// then by organization name. The store is queried at most once.
func (s *Session) Memberships(ctx context.Context) ([]*Membership, error) {
	if !s.lookupEligible() {
		return []*Membership{}, nil
	}

	s.once.Do(func() {
		memberships, err := s.resolver.store.ListUserMemberships(ctx, s.user.UserID)
		if err != nil {
			s.err = err
			return
		}
		sorted := append([]*Membership(nil), memberships...)
		sort.SliceStable(sorted, func(i, j int) bool {
			if sorted[i].IsDefault != sorted[j].IsDefault {
				return sorted[i].IsDefault
			}
			return sorted[i].OrganizationName < sorted[j].OrganizationName
		})
		s.memberships = sorted
	})

	return s.memberships, s.err
}

// Resolve applies the resolution order: explicit request, default
// membership, single membership, first membership, none.
func (s *Session) Resolve(ctx context.Context, requestedOrgID string) (*OrganizationContext, error) {
	requestedOrgID = strings.TrimSpace(requestedOrgID)

	if !s.lookupEligible() {
		if s.user != nil {
			s.resolver.log.WithField("user_id", s.user.UserID).Debug("Skipping organization lookup for non-UUID subject")
		}
		return &OrganizationContext{AccessibleOrganizations: []string{}, Source: SourceNone}, nil
	}

	memberships, err := s.Memberships(ctx)

	if requestedOrgID != "" {
		if err != nil {
			return nil, errx.Wrap(errx.ErrInternalLookupFailure, err)
		}
		return s.resolveExplicit(requestedOrgID, memberships)
	}

	if err != nil {
		s.resolver.log.WithError(err).WithField("user_id", s.user.UserID).Warn("Failed to load memberships, continuing without organization")
		return &OrganizationContext{AccessibleOrganizations: []string{}, Source: SourceNone, LookupFailed: true}, nil
	}

	result := &OrganizationContext{
		AccessibleOrganizations: organizationIDs(memberships),
		Source:                  SourceNone,
	}

	candidate, source := selectFallback(memberships)
	if candidate == nil {
		return result, nil
	}
	if !hasMembership(memberships, candidate.OrganizationID) {
		return result, nil
	}

	id := candidate.OrganizationID
	result.OrganizationID = &id
	result.OrganizationName = candidate.OrganizationName
	result.Source = source
	result.FallbackSelected = source == SourceSingle || source == SourceFirst
	return result, nil
}

func (s *Session) resolveExplicit(requested string, memberships []*Membership) (*OrganizationContext, error) {
	available := organizationIDs(memberships)

	if _, err := uuid.Parse(requested); err == nil {
		for _, m := range memberships {
			if m.OrganizationID == requested {
				id := m.OrganizationID
				return &OrganizationContext{
					OrganizationID:          &id,
					OrganizationName:        m.OrganizationName,
					AccessibleOrganizations: available,
					Source:                  SourceExplicit,
				}, nil
			}
		}
	}

	s.resolver.log.WithFields(logrus.Fields{
		"user_id":                s.user.UserID,
		"requested_organization": requested,
	}).Info("Organization access denied")

	return nil, errx.ErrOrganizationAccessDenied.
		WithDetail("requested_organization", requested).
		WithDetail("available_organizations", available)
}

// selectFallback picks the default, the only, or the first membership
func selectFallback(memberships []*Membership) (*Membership, ResolutionSource) {
	for _, m := range memberships {
		if m.IsDefault {
			return m, SourceDefault
		}
	}
	switch len(memberships) {
	case 0:
		return nil, SourceNone
	case 1:
		return memberships[0], SourceSingle
	default:
		return memberships[0], SourceFirst
	}
}

func hasMembership(memberships []*Membership, orgID string) bool {
	for _, m := range memberships {
		if m.OrganizationID == orgID {
			return true
		}
	}
	return false
}

func organizationIDs(memberships []*Membership) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.OrganizationID)
	}
	return ids
}
