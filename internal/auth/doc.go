// Package auth issues and verifies the bearer tokens that guard the
// mutating GPIO routes.
//
// Tokens are HS256 JWTs carrying a subject and a Role. Roles map to a
// fixed permission set, so authorisation needs no database lookup:
//
//	viewer   → pin:read, audit:read
//	operator → viewer + pin:operate
//	admin    → operator + system:admin
//
// Tokens are minted offline with `httpgpio -issue-token` and validated by
// signature and expiry only.
package auth
