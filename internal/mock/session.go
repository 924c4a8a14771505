package mock

import (
	"context"
	"sync"

	"tradebot/internal/core"
)

// MockAuthenticator implements core.ISessionAuthenticator.
type MockAuthenticator struct {
	mu sync.Mutex

	Valid          bool
	ReauthOK       bool
	ReauthErr      error
	CurrentSession core.Session

	EnsureCalls int
	ReauthCalls int
}

func (m *MockAuthenticator) IsSessionValid(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Valid
}

func (m *MockAuthenticator) Reauthenticate(ctx context.Context, nonce []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReauthCalls++
	if m.ReauthErr != nil {
		return false, m.ReauthErr
	}
	if m.ReauthOK {
		m.Valid = true
	}
	return m.ReauthOK, nil
}

func (m *MockAuthenticator) EnsureAuthenticated(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnsureCalls++
	return m.Valid || m.ReauthOK
}

func (m *MockAuthenticator) Session() core.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CurrentSession
}

// MockTransport implements core.ITransport.
type MockTransport struct {
	Nonce []byte
	Err   error
	Calls int
}

func (m *MockTransport) RequestNonce(ctx context.Context) ([]byte, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Nonce, nil
}

// MockConfirmer implements core.IConfirmationService and counts sweeps.
type MockConfirmer struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func (m *MockConfirmer) ConfirmAll(ctx context.Context, session core.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Err
}

func (m *MockConfirmer) Sweeps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockFriendResolver implements core.IFriendResolver with the standard
// account-ref offset.
type MockFriendResolver struct{}

func (MockFriendResolver) ResolveAccountRef(accountID uint32) uint64 {
	return uint64(accountID) + 76561197960265728
}

func (MockFriendResolver) IsAdmin(accountRef uint64, admins []uint64) bool {
	for _, a := range admins {
		if a == accountRef {
			return true
		}
	}
	return false
}
