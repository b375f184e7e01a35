package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ziadkadry99/branch-canvas/internal/db"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
)

// Keys of the per-session store.
const (
	KeyCanvas        = "branching-chat-canvas"
	KeyOpenAIKey     = "openai-api-key"
	KeyGeminiKey     = "gemini-api-key"
	KeyProvider      = "chat-provider"
	KeyGeminiVersion = "gemini-api-version"
	KeyGeminiModel   = "gemini-model"
)

// Preferences are the provider settings chosen in a session.
type Preferences struct {
	Provider      llm.Kind `json:"provider"`
	OpenAIKey     string   `json:"openaiApiKey,omitempty"`
	GeminiKey     string   `json:"geminiApiKey,omitempty"`
	GeminiVersion string   `json:"geminiApiVersion"`
	GeminiModel   string   `json:"geminiModel"`
}

// Store keeps string values per (session, key) in SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Touch records that the session was seen.
func (s *Store) Touch(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id) VALUES (?)
		ON CONFLICT(id) DO UPDATE SET last_seen = datetime('now')`, sessionID)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// Sessions lists known session ids, most recently seen first.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions ORDER BY last_seen DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns the value stored under key and whether it exists.
func (s *Store) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_items WHERE session_id = ? AND key = ?`, sessionID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, sessionID, key, value string) error {
	if err := s.Touch(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_items (session_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(session_id, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')`,
		sessionID, key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes key from the session.
func (s *Store) Delete(ctx context.Context, sessionID, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_items WHERE session_id = ? AND key = ?`, sessionID, key)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// LoadCanvas returns the saved canvas of the session, or nil when none was
// saved. An unreadable value is reported as a *LoadError and left in place.
func (s *Store) LoadCanvas(ctx context.Context, sessionID string) (*Snapshot, error) {
	raw, ok, err := s.Get(ctx, sessionID, KeyCanvas)
	if err != nil || !ok {
		return nil, err
	}
	return Import([]byte(raw))
}

// SaveCanvas stores the snapshot as the session's canvas.
func (s *Store) SaveCanvas(ctx context.Context, sessionID string, snap *Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	return s.Set(ctx, sessionID, KeyCanvas, string(data))
}

// Preferences reads the provider settings of the session, filling in
// defaults for anything unset.
func (s *Store) Preferences(ctx context.Context, sessionID string) (Preferences, error) {
	values := make(map[string]string)
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM session_items WHERE session_id = ? AND key <> ?`, sessionID, KeyCanvas)
	if err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Preferences{}, fmt.Errorf("scanning preference: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Preferences{}, fmt.Errorf("reading preferences: %w", err)
	}

	p := Preferences{
		Provider:      llm.Kind(values[KeyProvider]),
		OpenAIKey:     values[KeyOpenAIKey],
		GeminiKey:     values[KeyGeminiKey],
		GeminiVersion: values[KeyGeminiVersion],
		GeminiModel:   values[KeyGeminiModel],
	}
	return p.withDefaults(), nil
}

// SavePreferences writes every preference key. Empty API keys are removed.
func (s *Store) SavePreferences(ctx context.Context, sessionID string, p Preferences) error {
	p = p.withDefaults()
	set := map[string]string{
		KeyProvider:      string(p.Provider),
		KeyGeminiVersion: p.GeminiVersion,
		KeyGeminiModel:   p.GeminiModel,
	}
	for _, kv := range []struct{ key, value string }{
		{KeyOpenAIKey, p.OpenAIKey},
		{KeyGeminiKey, p.GeminiKey},
	} {
		if kv.value == "" {
			if err := s.Delete(ctx, sessionID, kv.key); err != nil {
				return err
			}
			continue
		}
		set[kv.key] = kv.value
	}
	for k, v := range set {
		if err := s.Set(ctx, sessionID, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (p Preferences) withDefaults() Preferences {
	if p.Provider == "" {
		p.Provider = llm.KindOpenAI
	}
	if p.GeminiVersion == "" {
		p.GeminiVersion = llm.DefaultGeminiVersion
	}
	if p.GeminiModel == "" {
		p.GeminiModel = llm.DefaultGeminiModel
	}
	return p
}

// Settings converts the preferences into provider settings for the selected
// provider.
func (p Preferences) Settings() llm.Settings {
	s := llm.Settings{Kind: p.Provider}
	switch p.Provider {
	case llm.KindGemini:
		s.APIKey = p.GeminiKey
		s.Model = p.GeminiModel
		s.APIVersion = p.GeminiVersion
	case llm.KindOpenAI, "":
		s.APIKey = p.OpenAIKey
	}
	return s
}
