// Package auth authenticates the site administrator: the configured password
// is bcrypt-hashed at startup and a successful login returns an HS256 JWT
// carrying the admin email and role. Tokens are stateless; logout is a
// client-side concern.
package auth
