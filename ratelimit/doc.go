// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit bounds vote submission attempts per voter identifier.

Both implementations use a fixed window: the first attempt (or the first
after the window elapsed) starts a new window with count 1; later attempts
increment the count until the limit is reached, after which Allow returns
false without incrementing further.

  - MemoryLimiter: in-process map, lazy expiry, Sweep for eviction.
  - RedisLimiter: shared across instances via an atomic Lua script.

Default policy is 10 attempts per 60 seconds.
*/
package ratelimit
