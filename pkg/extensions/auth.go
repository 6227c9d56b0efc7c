// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrUnauthorized is returned when authentication fails.
// Enterprise implementations should wrap this error with additional context.
//
// Example:
//
//	if !validToken {
//	    return nil, fmt.Errorf("invalid token format: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// LocalUserID is the identity assigned when no token is presented in the
// open source single-user deployment.
const LocalUserID = "local-user"

// AuthInfo contains identity information returned after successful
// authentication.
//
// Required fields (always populated):
//   - UserID: Unique identifier for the user
//
// Optional fields (may be empty):
//   - DisplayName: Human-readable name shown on the session roster
//   - Roles: List of roles/groups the user belongs to
type AuthInfo struct {
	// UserID is the unique identifier for the authenticated user.
	// This is the only required field and must never be empty.
	UserID string

	// DisplayName is the name presented to other session participants.
	// When empty the transport falls back to the UserID.
	DisplayName string

	// Roles contains the user's role memberships.
	// Common roles: "admin", "member", "guest"
	Roles []string
}

// HasRole checks if the user has a specific role.
//
//	if !authInfo.HasRole("admin") {
//	    return ErrUnauthorized
//	}
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates authentication tokens and returns user identity.
//
// Implementations must be safe for concurrent use by multiple goroutines.
//
// # Open Source Behavior
//
// The default NopAuthProvider treats a non-empty token as the user id
// itself and falls back to LocalUserID for empty tokens. This allows the
// local server to function without any authentication infrastructure
// while still giving each client a stable identity.
//
// # Enterprise Implementation
//
// Enterprise versions implement this interface to validate tokens against
// identity providers like Okta, Auth0, or Azure AD.
type AuthProvider interface {
	// Validate checks if the token is valid and returns the user's identity.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - token: The authentication token (JWT, session ID, API key, etc.)
	//
	// Returns:
	//   - *AuthInfo: User identity information if valid
	//   - error: ErrUnauthorized (or wrapped) if invalid, other errors for failures
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider is the default authentication provider for open source.
//
// A non-empty token is accepted verbatim as the user id; an empty token
// maps to LocalUserID. No token is ever rejected.
//
// Thread-safe: This implementation has no mutable state.
type NopAuthProvider struct{}

// Validate accepts any token and derives a stable local identity from it.
func (p *NopAuthProvider) Validate(_ context.Context, token string) (*AuthInfo, error) {
	userID := token
	if userID == "" {
		userID = LocalUserID
	}
	return &AuthInfo{
		UserID: userID,
		Roles:  []string{"member"},
	}, nil
}

// Compile-time interface compliance check.
var _ AuthProvider = (*NopAuthProvider)(nil)
