package mocks

import (
	"context"
	"sync"

	"github.com/ruralshare/authflow/domain"
)

// MockWhatsAppProvider implements domain.WhatsAppProvider for testing. Init
// emits the ready event synchronously by default so tests can assert the
// init -> ready -> send ordering without sleeping.
type MockWhatsAppProvider struct {
	InitFunc           func(ctx context.Context, appID string) error
	StartPhoneAuthFunc func(ctx context.Context, nationalNumber, countryCode string) error
	VerifyFunc         func(ctx context.Context, nationalNumber, countryCode, code string) error

	// Calls records the order of operations, including the synthetic
	// "ready" entry emitted between Init and any send.
	Calls []string

	mu      sync.Mutex
	subs    map[int]func(domain.ChannelEvent)
	nextSub int
}

// NewMockWhatsAppProvider creates a new MockWhatsAppProvider
func NewMockWhatsAppProvider() *MockWhatsAppProvider {
	return &MockWhatsAppProvider{subs: make(map[int]func(domain.ChannelEvent))}
}

func (m *MockWhatsAppProvider) Init(ctx context.Context, appID string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "Init")
	m.mu.Unlock()
	if m.InitFunc != nil {
		return m.InitFunc(ctx, appID)
	}
	m.mu.Lock()
	m.Calls = append(m.Calls, "ready")
	m.mu.Unlock()
	m.Emit(domain.ChannelEvent{Kind: domain.EventReady})
	return nil
}

func (m *MockWhatsAppProvider) Subscribe(fn func(domain.ChannelEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *MockWhatsAppProvider) StartPhoneAuth(ctx context.Context, nationalNumber, countryCode string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "StartPhoneAuth")
	m.mu.Unlock()
	if m.StartPhoneAuthFunc != nil {
		return m.StartPhoneAuthFunc(ctx, nationalNumber, countryCode)
	}
	return nil
}

func (m *MockWhatsAppProvider) Verify(ctx context.Context, nationalNumber, countryCode, code string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, "Verify")
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, nationalNumber, countryCode, code)
	}
	if code != "123456" {
		return domain.ErrCodeMismatch
	}
	return nil
}

// Emit delivers an event to every live subscriber.
func (m *MockWhatsAppProvider) Emit(ev domain.ChannelEvent) {
	m.mu.Lock()
	fns := make([]func(domain.ChannelEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// SubscriberCount reports how many subscriptions are live.
func (m *MockWhatsAppProvider) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// CallOrder returns a copy of the recorded call sequence.
func (m *MockWhatsAppProvider) CallOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// Compile-time interface compliance verification
var _ domain.WhatsAppProvider = (*MockWhatsAppProvider)(nil)
