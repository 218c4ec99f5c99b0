// Package auth provides authentication for charla.
//
// # Tokens
//
// Users authenticate with JWT tokens signed with HS256 using the configured
// jwt_secret. A token's claims carry at least:
//
//   - sub: the user ID
//   - name: the user's display name
//
// Tokens are issued at login/register time and consumed in two places: the
// Authorization header of REST calls, and the handshake credential of the
// websocket channel.
//
// # Token Management
//
//	verifier := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(userID, name, 24*time.Hour)
//	claims, err := verifier.Verify(token)
//
// # HTTP Middleware
//
// Middleware(verifier) validates the bearer token and stores the verified
// Claims in the request context, retrievable with FromContext.
//
// # Passwords
//
// HashPassword and CheckPassword wrap bcrypt for credential storage.
package auth
