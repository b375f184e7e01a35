package workspace

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/branch-canvas/internal/canvas"
	"github.com/ziadkadry99/branch-canvas/internal/events"
	"github.com/ziadkadry99/branch-canvas/internal/llm"
	"github.com/ziadkadry99/branch-canvas/internal/session"
	"github.com/ziadkadry99/branch-canvas/internal/viewport"
)

// Default viewport size used until a client reports its own.
const (
	DefaultViewportWidth  = 1280.0
	DefaultViewportHeight = 800.0
)

// ProviderFactory builds a chat provider from settings.
type ProviderFactory func(llm.Settings) (llm.Provider, error)

// Options configures a Manager.
type Options struct {
	// Settings returns the server-wide settings of a provider: model,
	// base URL, fallback API key, rate limit and timeout. Session
	// preferences override the key and the Gemini model and version.
	Settings func(llm.Kind) llm.Settings

	ViewportWidth  float64
	ViewportHeight float64

	// NewProvider defaults to llm.NewProvider.
	NewProvider ProviderFactory
	// NewID overrides node id generation. Intended for tests.
	NewID func() string

	Logger zerolog.Logger
}

// Manager hands out one Workspace per session and keeps them cached.
type Manager struct {
	store *session.Store
	bus   *events.Bus
	opts  Options

	mu         sync.Mutex
	workspaces map[string]*Workspace
	providers  map[llm.Settings]llm.Provider

	sends sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(store *session.Store, bus *events.Bus, opts Options) *Manager {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = DefaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = DefaultViewportHeight
	}
	if opts.NewProvider == nil {
		opts.NewProvider = llm.NewProvider
	}
	return &Manager{
		store:      store,
		bus:        bus,
		opts:       opts,
		workspaces: make(map[string]*Workspace),
		providers:  make(map[llm.Settings]llm.Provider),
	}
}

// Bus returns the event bus workspaces publish on.
func (m *Manager) Bus() *events.Bus { return m.bus }

// Store returns the session store.
func (m *Manager) Store() *session.Store { return m.store }

// Open returns the workspace of a session, restoring it from the store on
// first use. A session without a saved canvas starts with a root node
// centred in the viewport.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.workspaces[sessionID]; ok {
		return w, nil
	}

	if err := m.store.Touch(ctx, sessionID); err != nil {
		return nil, err
	}
	prefs, err := m.store.Preferences(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap, err := m.store.LoadCanvas(ctx, sessionID)
	if err != nil {
		m.opts.Logger.Warn().Err(err).Str("session", sessionID).Msg("unreadable saved canvas")
		return nil, err
	}

	view := viewport.New(m.opts.ViewportWidth, m.opts.ViewportHeight)
	w := &Workspace{
		id:      sessionID,
		manager: m,
		logger:  m.opts.Logger.With().Str("session", sessionID).Logger(),
		view:    view,
		prefs:   prefs,
	}
	w.ctl = viewport.NewController(view, nil)
	if snap != nil {
		w.load(snap)
	} else {
		w.canvas = canvas.New()
		if m.opts.NewID != nil {
			w.canvas.SetIDGenerator(m.opts.NewID)
		}
		w.ctl.Bind(view, w.canvas)
		root := w.canvas.CreateRoot(view.Width, view.Height)
		view.CenterOn(root)
		if err := w.persistLocked(ctx); err != nil {
			return nil, err
		}
	}

	m.workspaces[sessionID] = w
	w.logger.Debug().Int("nodes", w.canvas.Len()).Msg("opened workspace")
	return w, nil
}

// Discard deletes the saved canvas of a session that is not open, so the
// next Open starts over. It is how a session leaves an unreadable canvas
// behind; an open workspace is left alone.
func (m *Manager) Discard(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workspaces[sessionID]; ok {
		return nil
	}
	return m.store.Delete(ctx, sessionID, session.KeyCanvas)
}

// Wait blocks until every in-flight send has completed.
func (m *Manager) Wait() {
	m.sends.Wait()
}

// settings overlays the session's preferences on the server-wide settings
// of the selected provider.
func (m *Manager) settings(p session.Preferences) llm.Settings {
	s := p.Settings()
	if m.opts.Settings == nil {
		return s
	}
	base := m.opts.Settings(s.Kind)
	s.APIKey = firstNonEmpty(s.APIKey, base.APIKey)
	s.Model = firstNonEmpty(s.Model, base.Model)
	s.APIVersion = firstNonEmpty(s.APIVersion, base.APIVersion)
	s.BaseURL = base.BaseURL
	s.RequestsPerMinute = base.RequestsPerMinute
	s.Timeout = base.Timeout
	return s
}

// Provider returns the provider of kind configured with the server-wide
// settings alone. It backs endpoints that have no session.
func (m *Manager) Provider(kind llm.Kind) (llm.Provider, error) {
	s := llm.Settings{Kind: kind}
	if m.opts.Settings != nil {
		s = m.opts.Settings(kind)
		s.Kind = kind
	}
	return m.provider(s)
}

// provider returns a cached provider for s so rate limits hold across sends.
func (m *Manager) provider(s llm.Settings) (llm.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.providers[s]; ok {
		return p, nil
	}
	p, err := m.opts.NewProvider(s)
	if err != nil {
		return nil, fmt.Errorf("creating %s provider: %w", s.Kind, err)
	}
	m.providers[s] = p
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
