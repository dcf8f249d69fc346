package placeholder

import (
	"errors"
	"fmt"
)

// ErrDuplicateToken is returned when a token is set twice.
var ErrDuplicateToken = errors.New("duplicate placeholder token")

// Map is an insertion-ordered token -> value mapping. Every token is unique.
type Map struct {
	keys   []string
	values map[string]string
}

func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// Set binds the token for ident to value.
func (m *Map) Set(ident, value string) error {
	if !ValidIdent(ident) {
		return fmt.Errorf("invalid placeholder identifier %q", ident)
	}
	return m.SetToken(Token(ident), value)
}

// SetToken binds an already wrapped token to value.
func (m *Map) SetToken(token, value string) error {
	if !ValidToken(token) {
		return fmt.Errorf("invalid placeholder token %q", token)
	}
	if _, exists := m.values[token]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, token)
	}
	m.keys = append(m.keys, token)
	m.values[token] = value
	return nil
}

// Get returns the value bound to token.
func (m *Map) Get(token string) (string, bool) {
	v, ok := m.values[token]
	return v, ok
}

// Len returns the number of bindings.
func (m *Map) Len() int {
	return len(m.keys)
}

// Tokens returns the tokens in insertion order.
func (m *Map) Tokens() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}
