package mocks

import "sync"

// MockPublisher records produced messages per topic so tests can assert on
// what the engine published.
type MockPublisher struct {
	mu       sync.Mutex
	Messages map[string][]string
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{Messages: make(map[string][]string)}
}

func (m *MockPublisher) ProduceMessage(topic, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages[topic] = append(m.Messages[topic], message)
	return nil
}

func (m *MockPublisher) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.Messages[topic])
}
