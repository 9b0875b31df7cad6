// Package api provides the gatekeeper HTTP API.
//
// # Routes
//
//	GET    /api/v1/me                          caller identity and organization
//	GET    /api/v1/organizations               accessible organizations
//	GET    /api/v1/organizations/current       the resolved organization (tenant required)
//	PUT    /api/v1/organizations/{id}/default  change the default organization
//	POST   /api/v1/registration-codes          issue a code (agent role or above)
//	GET    /api/v1/registration-codes          list codes
//	GET    /api/v1/registration-codes/{code}   fetch a code by value
//	DELETE /api/v1/registration-codes/{id}     revoke a code
//	POST   /api/v1/agents/register             redeem a code for an API key
//	GET    /api/v1/agents/self                 the API-key authenticated agent
//	GET    /api/v1/agents/{agent_id}           an agent, for its owner
//	GET    /health/live, /health/ready
//
// User routes run Authenticate, OrgContext and the rate limiter in that
// order. Agent routes run AgentAuth and the rate limiter. Registration is
// public and limited per client address.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Log:      log,
//		Identity: extractor,
//		Resolver: resolver,
//		Codes:    codes,
//		...
//	})
//	http.ListenAndServe(":8080", server.Handler())
package api
