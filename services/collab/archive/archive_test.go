// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianCollab/services/collab/datatypes"
)

func newEndedSession(name string) *datatypes.Session {
	host := datatypes.NewParticipant("u-host", "Hana", datatypes.RoleHost, 0)
	doc := datatypes.NewDocument("main.go", "package main\n", "go", "u-host")
	s := datatypes.NewSession(name, host, doc, datatypes.DefaultSettings())
	s.Chat = append(s.Chat, datatypes.NewSystemMessage("Hana joined the session"))
	s.Status = datatypes.SessionEnded
	return s
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestArchiveRoundTrip verifies the full session record survives storage.
func TestArchiveRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	s := newEndedSession("retro")

	require.NoError(t, store.ArchiveSession(ctx, s))

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, datatypes.SessionEnded, got.Status)
	assert.Equal(t, s.Document.Content, got.Document.Content)
	require.Len(t, got.Document.Checkpoints, 1)
	assert.Equal(t, datatypes.InitialCheckpointDescription, got.Document.Checkpoints[0].Description)
	require.Len(t, got.Chat, 1)
	assert.Equal(t, datatypes.MessageSystem, got.Chat[0].Type)
}

// TestArchiveIsIdempotent verifies re-archiving overwrites cleanly.
func TestArchiveIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	s := newEndedSession("standup")

	require.NoError(t, store.ArchiveSession(ctx, s))
	s.Document.Content = "updated before retry"
	require.NoError(t, store.ArchiveSession(ctx, s))

	got, err := store.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated before retry", got.Document.Content)

	ids, err := store.ListSessionIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, ids)
}

func TestGetSessionNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetSession(context.Background(), "no-such")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListSessionIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := newEndedSession("a")
	b := newEndedSession("b")
	require.NoError(t, store.ArchiveSession(ctx, a))
	require.NoError(t, store.ArchiveSession(ctx, b))

	ids, err := store.ListSessionIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}

func TestDeleteSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	s := newEndedSession("ephemeral")

	require.NoError(t, store.ArchiveSession(ctx, s))
	require.NoError(t, store.DeleteSession(ctx, s.ID))

	_, err := store.GetSession(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent id is a no-op.
	require.NoError(t, store.DeleteSession(ctx, s.ID))
}

func TestPersistentStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := newEndedSession("durable")

	cfg := DefaultConfig(dir)
	store, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, store.ArchiveSession(ctx, s))
	require.NoError(t, store.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestArchiveRejectsNilSession(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.ArchiveSession(context.Background(), nil))
}
