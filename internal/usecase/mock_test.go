package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"

	"github.com/totegamma/concrnt-console"
	"github.com/totegamma/concrnt-console/internal/domain"
)

const testPrivateKey = "8c0b1d9f6d0e3f1c4b7a2e5d9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e2d1c0b"

const testCCID = "con1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq"

func testToken(claims string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"CONCRNT","typ":"JWT"}`)) + "." +
		base64.RawURLEncoding.EncodeToString([]byte(claims)) + ".sig"
}

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	puts     int
	putErr   error
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: map[string]domain.Session{}}
}

func (m *mockSessionRepo) Get(ctx context.Context, id string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return domain.Session{}, domain.NotFoundError{Resource: "session"}
	}
	// round trip through the persisted form
	b, _ := json.Marshal(s)
	var out domain.Session
	_ = json.Unmarshal(b, &out)
	return out, nil
}

func (m *mockSessionRepo) Put(ctx context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts++
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

type mockBackend struct {
	mu sync.Mutex

	profile     concrnt.DomainProfile
	profileErr  error
	template    json.RawMessage
	templateErr error
	tos         string
	coc         string
	docErr      error

	claimed  string
	claimErr error

	entities   map[string]*concrnt.Entity
	resolveErr error

	submitted    []concrnt.RegistrationRequest
	submitBearer []string
	submitErr    error
}

func (m *mockBackend) FetchDomainProfile(ctx context.Context) (concrnt.DomainProfile, error) {
	return m.profile, m.profileErr
}

func (m *mockBackend) FetchTermsOfService(ctx context.Context) (string, error) {
	return m.tos, m.docErr
}

func (m *mockBackend) FetchCodeOfConduct(ctx context.Context) (string, error) {
	return m.coc, m.docErr
}

func (m *mockBackend) FetchRegisterTemplate(ctx context.Context) (json.RawMessage, error) {
	return m.template, m.templateErr
}

func (m *mockBackend) ClaimSession(ctx context.Context, clientSignedToken string) (string, error) {
	return m.claimed, m.claimErr
}

func (m *mockBackend) ResolveEntity(ctx context.Context, id string) (*concrnt.Entity, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.entities[id], nil
}

func (m *mockBackend) SubmitRegistration(ctx context.Context, credential string, request concrnt.RegistrationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, request)
	m.submitBearer = append(m.submitBearer, credential)
	return m.submitErr
}

// mockResource keeps records keyed by id like the backend does.
type mockResource[T any] struct {
	mu      sync.Mutex
	key     func(T) string
	order   []string
	records map[string]T
	// listHook runs before List returns, while the panel waits.
	listHook func()
	calls    []string
	err      error
}

func newMockResource[T any](key func(T) string, items ...T) *mockResource[T] {
	m := &mockResource[T]{key: key, records: map[string]T{}}
	for _, item := range items {
		m.put(item)
	}
	return m
}

func (m *mockResource[T]) put(item T) {
	id := m.key(item)
	if _, ok := m.records[id]; !ok {
		m.order = append(m.order, id)
	}
	m.records[id] = item
}

func (m *mockResource[T]) List(ctx context.Context, credential string) ([]T, error) {
	if m.listHook != nil {
		m.listHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "list")
	if m.err != nil {
		return nil, m.err
	}
	items := make([]T, 0, len(m.order))
	for _, id := range m.order {
		items = append(items, m.records[id])
	}
	return items, nil
}

func (m *mockResource[T]) Create(ctx context.Context, credential string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "create:"+id)
	return m.err
}

func (m *mockResource[T]) Update(ctx context.Context, credential string, item T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "update:"+m.key(item))
	if m.err != nil {
		return m.err
	}
	m.put(item)
	return nil
}

func (m *mockResource[T]) Delete(ctx context.Context, credential string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete:"+id)
	if m.err != nil {
		return m.err
	}
	delete(m.records, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}
