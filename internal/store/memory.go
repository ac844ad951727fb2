package store

import (
	"context"
	"sync"

	"github.com/gastrack/industrial-gas-monitoring/internal/domain"
)

// Memory is an in-process Store for tests and local development. It keeps
// the same conflict asymmetry as the real backends: users and industries
// overwrite on conflict, readings do not.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]domain.User
	industries  map[string]domain.Industry
	readings    map[string]domain.Reading
	assignments map[string][]domain.Industry

	userOrder     []string
	industryOrder []string
	readingOrder  []string
}

func NewMemory() *Memory {
	return &Memory{
		users:       map[string]domain.User{},
		industries:  map[string]domain.Industry{},
		readings:    map[string]domain.Reading{},
		assignments: map[string][]domain.Industry{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) FetchAll(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &domain.Snapshot{Assignments: domain.Assignments{}}
	for _, id := range m.userOrder {
		snap.Users = append(snap.Users, m.users[id])
	}
	for _, id := range m.industryOrder {
		snap.Industries = append(snap.Industries, m.industries[id])
	}
	for _, id := range m.readingOrder {
		snap.Readings = append(snap.Readings, m.readings[id])
	}
	for username, list := range m.assignments {
		snap.Assignments[username] = append([]domain.Industry(nil), list...)
	}
	return snap, nil
}

func (m *Memory) PutUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) PutIndustry(ctx context.Context, ind domain.Industry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.industries[ind.ID]; !ok {
		m.industryOrder = append(m.industryOrder, ind.ID)
	}
	m.industries[ind.ID] = ind
	return nil
}

// PutReading ignores a duplicate id entirely: first write wins.
func (m *Memory) PutReading(ctx context.Context, r domain.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.readings[r.ID]; ok {
		return nil
	}
	m.readings[r.ID] = r
	m.readingOrder = append(m.readingOrder, r.ID)
	return nil
}

func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	m.userOrder = removeID(m.userOrder, id)
	return nil
}

func (m *Memory) DeleteIndustry(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.industries, id)
	m.industryOrder = removeID(m.industryOrder, id)
	return nil
}

func (m *Memory) DeleteReading(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.readings, id)
	m.readingOrder = removeID(m.readingOrder, id)
	return nil
}

func (m *Memory) BulkPutIndustries(ctx context.Context, industries []domain.Industry) error {
	for _, ind := range industries {
		if err := m.PutIndustry(ctx, ind); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) SaveAssignment(ctx context.Context, username string, industries []domain.Industry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[username] = append([]domain.Industry(nil), industries...)
	return nil
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
