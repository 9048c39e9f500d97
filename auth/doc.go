// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides token and credential primitives for the API.

# Tokens

Voters authenticate with signed HS256 JWTs carrying their verified
identity:

	token, err := auth.GenerateToken(voterID, role, secret, auth.DefaultTokenTTL)
	claims, err := auth.ParseToken(token, secret)

ParseToken returns ErrTokenExpired for stale tokens and ErrInvalidToken
for anything else that fails verification. The same token is accepted by
the HTTP middleware and by the websocket handshake.

# Passwords

Passwords are stored as bcrypt hashes:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(hash, password)

# IDs

GenerateID returns a UUID string used as the primary key for all
entities (voters, campaigns, candidates, votes).
*/
package auth
