// Package mockboard provides an in-memory clipboard for testing.
package mockboard

// MockClipboard records the last text written to it
type MockClipboard struct {
	text   string
	writes int
}

// New creates a new MockClipboard instance
func New() *MockClipboard {
	return &MockClipboard{}
}

// Write stores text
func (m *MockClipboard) Write(text string) error {
	m.text = text
	m.writes++
	return nil
}

// IsSupported always returns true for the mock clipboard
func (m *MockClipboard) IsSupported() bool {
	return true
}

// Text returns the current clipboard contents
func (m *MockClipboard) Text() string {
	return m.text
}

// Writes returns how many times Write was called
func (m *MockClipboard) Writes() int {
	return m.writes
}
