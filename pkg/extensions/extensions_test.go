// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"testing"
)

func TestDefaultOptionsAreNoOps(t *testing.T) {
	opts := DefaultOptions()
	if opts.AuthProvider == nil {
		t.Fatal("DefaultOptions() AuthProvider is nil")
	}
	if opts.AuditLogger == nil {
		t.Fatal("DefaultOptions() AuditLogger is nil")
	}

	info, err := opts.AuthProvider.Validate(context.Background(), "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if info.UserID != LocalUserID {
		t.Errorf("empty token UserID = %q, want %q", info.UserID, LocalUserID)
	}

	if err := opts.AuditLogger.Log(context.Background(), AuditEvent{EventType: "session.create"}); err != nil {
		t.Errorf("NopAuditLogger.Log() error = %v", err)
	}
	if err := opts.AuditLogger.Flush(context.Background()); err != nil {
		t.Errorf("NopAuditLogger.Flush() error = %v", err)
	}
}

func TestNopAuthProviderUsesTokenAsIdentity(t *testing.T) {
	p := &NopAuthProvider{}
	info, err := p.Validate(context.Background(), "u-alice")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if info.UserID != "u-alice" {
		t.Errorf("UserID = %q, want token value", info.UserID)
	}
	if !info.HasRole("member") {
		t.Error("expected member role")
	}
	if info.HasRole("admin") {
		t.Error("unexpected admin role")
	}
}

func TestWithOptionsChaining(t *testing.T) {
	custom := &NopAuthProvider{}
	audit := &NopAuditLogger{}
	opts := DefaultOptions().WithAuth(custom).WithAudit(audit)
	if opts.AuthProvider != custom {
		t.Error("WithAuth did not replace provider")
	}
	if opts.AuditLogger != audit {
		t.Error("WithAudit did not replace logger")
	}
}
