// Package regcodes issues, lists, revokes and redeems one-time
// registration codes used to bootstrap agents.
//
// Codes look like RC-1A2B3C4D-5E6F7A8B and are generated from 8 random
// bytes. A code's stored status is one of active, used or revoked. Expiry is
// never written back: callers read EffectiveStatus, which reports expired
// for an active code past its expiry.
//
// Redemption is a single conditional UPDATE, so two concurrent redemptions
// of the same code cannot both succeed.
package regcodes
