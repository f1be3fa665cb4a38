package memory

import (
	"context"
	"testing"
)

func TestTypingSingleSlot(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.SetTyping(ctx, "alice", "conv1"); err != nil {
		t.Fatalf("SetTyping: %v", err)
	}
	users, err := c.TypingUsers(ctx, "conv1", "")
	if err != nil {
		t.Fatalf("TypingUsers: %v", err)
	}
	if len(users) != 1 || users[0] != "alice" {
		t.Fatalf("expected [alice], got %v", users)
	}

	// Starting to type in conv2 must clear the conv1 slot.
	if err := c.SetTyping(ctx, "alice", "conv2"); err != nil {
		t.Fatalf("SetTyping conv2: %v", err)
	}
	users, _ = c.TypingUsers(ctx, "conv1", "")
	if len(users) != 0 {
		t.Fatalf("conv1 should be empty after moving to conv2, got %v", users)
	}
	users, _ = c.TypingUsers(ctx, "conv2", "")
	if len(users) != 1 || users[0] != "alice" {
		t.Fatalf("expected [alice] in conv2, got %v", users)
	}

	// Empty conversation id clears the slot entirely.
	if err := c.SetTyping(ctx, "alice", ""); err != nil {
		t.Fatalf("SetTyping clear: %v", err)
	}
	users, _ = c.TypingUsers(ctx, "conv2", "")
	if len(users) != 0 {
		t.Fatalf("conv2 should be empty after clear, got %v", users)
	}
}

func TestTypingExcludesRequester(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.SetTyping(ctx, "alice", "conv1")
	c.SetTyping(ctx, "bob", "conv1")

	users, err := c.TypingUsers(ctx, "conv1", "alice")
	if err != nil {
		t.Fatalf("TypingUsers: %v", err)
	}
	if len(users) != 1 || users[0] != "bob" {
		t.Fatalf("expected [bob], got %v", users)
	}
}

func TestOnlineAndStatus(t *testing.T) {
	c := New()
	ctx := context.Background()

	c.SetOnline(ctx, "alice", true)
	c.SetStatusMessage(ctx, "alice", "busy")
	c.SetTyping(ctx, "alice", "conv1")

	st, err := c.Status(ctx, "alice")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.IsOnline {
		t.Error("expected online")
	}
	if st.StatusMessage != "busy" {
		t.Errorf("status message = %q", st.StatusMessage)
	}
	if st.TypingIn != "conv1" {
		t.Errorf("typing in = %q", st.TypingIn)
	}
	if st.LastSeenAt.IsZero() {
		t.Error("last seen should be set by SetOnline")
	}

	c.SetOnline(ctx, "alice", false)
	st, _ = c.Status(ctx, "alice")
	if st.IsOnline {
		t.Error("expected offline")
	}
}
