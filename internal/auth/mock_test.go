package auth

import (
	"context"

	"github.com/andreichenchik/x-post-cli/internal/store"
)

// Mock credential store
type mockStore struct {
	values   map[string]string
	setCalls []map[string]string
	setErr   error
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string]string)}
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (m *mockStore) SetMany(ctx context.Context, items map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	copied := make(map[string]string, len(items))
	for key, value := range items {
		copied[key] = value
		m.values[key] = value
	}
	m.setCalls = append(m.setCalls, copied)
	return nil
}

// Mock validity probe
type mockProbe struct {
	valid bool
	calls int
}

func (m *mockProbe) IsValid(ctx context.Context, accessToken string) bool {
	m.calls++
	return m.valid
}

// Mock token exchanger
type mockExchanger struct {
	refreshPair  TokenPair
	refreshErr   error
	refreshCalls int

	exchangePair  TokenPair
	exchangeErr   error
	exchangeCalls int
	gotCode       string
	gotVerifier   string

	urlCalls int
}

func (m *mockExchanger) AuthCodeURL(state, challenge string) string {
	m.urlCalls++
	return "https://provider.example/authorize?state=" + state + "&code_challenge=" + challenge
}

func (m *mockExchanger) ExchangeCode(ctx context.Context, code, verifier string) (TokenPair, error) {
	m.exchangeCalls++
	m.gotCode = code
	m.gotVerifier = verifier
	if m.exchangeErr != nil {
		return TokenPair{}, m.exchangeErr
	}
	return m.exchangePair, nil
}

func (m *mockExchanger) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	m.refreshCalls++
	if m.refreshErr != nil {
		return TokenPair{}, m.refreshErr
	}
	return m.refreshPair, nil
}

// Mock callback listener
type mockListener struct {
	outcome  Outcome
	startErr error
	started  int
	gotState string
}

func (m *mockListener) Start(expectedState string) (<-chan Outcome, error) {
	m.started++
	m.gotState = expectedState
	if m.startErr != nil {
		return nil, m.startErr
	}
	outcomes := make(chan Outcome, 1)
	outcomes <- m.outcome
	return outcomes, nil
}
