// Package authsdk is a small Go client for the FileVault auth service.
//
// It wraps the session endpoints (login, refresh, logout) and the
// authenticated user endpoints behind a Session type that carries the
// current access token.
package authsdk
