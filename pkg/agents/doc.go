// Package agents authenticates autonomous agents by API key and provisions
// new agents from one-time registration codes.
//
// # Authentication
//
// The Gate reads a key from the x-api-key header, falling back to
// Authorization: Bearer. Keys without the gk_ prefix are rejected before
// any store access. When the caller sends an x-agent-id hint the lookup is
// scoped to that row; otherwise every active agent's stored hash is
// compared against the key. The unscoped scan costs one scrypt derivation
// per active agent and is only suitable for small agent populations.
//
// # Provisioning
//
// Provisioner.Provision redeems a registration code and creates the agent
// in one transaction. The plaintext API key is returned exactly once; only
// its hash is stored.
package agents
