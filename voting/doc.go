// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package voting implements the Player of the Match session state machine.

A match session is created lazily on its first vote and moves forward only:

	(absent) → active → closed      (closed with no votes)
	                  → completed   (closed with a winner)

Service serializes every mutation of a match under a per-match lock, so a
duplicate-voter check and the append that follows it cannot interleave
with another vote or a close. Tallies are never stored; Tally recomputes them from the vote
ledger on every read.

Rate limiting and voter identity are resolved by the caller before
SubmitVote is invoked. Errors wrap the sentinels in this package and
KindOf maps them to client-facing kinds.

Committed changes are fanned out to registered Notifiers (the Kafka event
stream and the live websocket hub) after the match lock is released.
*/
package voting
