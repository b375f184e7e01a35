package cmd

import (
	"context"
	"testing"

	"github.com/ziadkadry99/branch-canvas/internal/db"
	"github.com/ziadkadry99/branch-canvas/internal/session"
)

func TestResolveSession(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()
	store := session.NewStore(database)
	ctx := context.Background()

	if _, err := resolveSession(ctx, store, ""); err == nil {
		t.Error("expected an error without sessions")
	}

	if err := store.Touch(ctx, "abc"); err != nil {
		t.Fatal(err)
	}
	got, err := resolveSession(ctx, store, "")
	if err != nil {
		t.Fatalf("resolveSession: %v", err)
	}
	if got != "abc" {
		t.Errorf("resolveSession() = %q, want abc", got)
	}

	got, _ = resolveSession(ctx, store, "explicit")
	if got != "explicit" {
		t.Errorf("explicit session ignored: %q", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"server", "init", "export", "import", "mcp", "version"}
	for _, name := range want {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
