// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth handles voter identity and admin keys.

# Voter Identity

A Resolver turns a request into an opaque voter identifier used to
deduplicate votes:

  - NetworkResolver: "ip-" + first X-Forwarded-For address (then X-Real-IP,
    then RemoteAddr), optionally HMAC-hashed with a salt. "ip-unknown" when
    the request carries no address at all.
  - TokenResolver: "session-" + the X-Voter-Token header or potm_voter
    cookie. With Provision set, a new token is issued as a cookie and
    echoed in the X-Voter-Token response header.
  - AutoResolver: token variant when the request carries a token,
    network variant otherwise.

Resolvers never fail. Without any signal they return "unknown-<uuid>".

# Admin Keys

Closing a match can be guarded by an HMAC key derived from the match ID:

	key := auth.GenerateAdminKey(matchID, salt)
	err := auth.ValidateAdminKey(matchID, key, salt)
*/
package auth
