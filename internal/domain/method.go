package domain

import (
	"fmt"
	"strings"
)

// Method identifies which translation source produced a candidate.
// The set of methods is closed; adding a method means adding a constant here
// and an invocation adapter that produces candidates for it.
type Method string

// Translation methods in tie-break priority order.
const (
	// MethodA is the primary method and wins every tie.
	MethodA Method = "method_a"
	// MethodB is the second method in priority order.
	MethodB Method = "method_b"
	// MethodC is the third method in priority order.
	MethodC Method = "method_c"
	// MethodD is the fourth method in priority order.
	MethodD Method = "method_d"
	// MethodOfflineFallback is used only when every other method is
	// unavailable and loses every tie.
	MethodOfflineFallback Method = "offline_fallback"
)

// methodOrder lists all methods in priority order.
var methodOrder = []Method{MethodA, MethodB, MethodC, MethodD, MethodOfflineFallback}

// AllMethods returns every known method in priority order.
// The returned slice is a copy and may be modified by the caller.
func AllMethods() []Method {
	out := make([]Method, len(methodOrder))
	copy(out, methodOrder)
	return out
}

// Priority returns the tie-break rank of the method. Lower ranks win ties.
// Unknown methods rank after every known method.
func (m Method) Priority() int {
	for i, known := range methodOrder {
		if known == m {
			return i
		}
	}
	return len(methodOrder)
}

// Valid reports whether m is a member of the closed method set.
func (m Method) Valid() bool { return m.Priority() < len(methodOrder) }

// String returns the wire name of the method.
func (m Method) String() string { return string(m) }

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidConfiguration, string(m))
	}
	return []byte(m), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so methods can be read
// from JSON and YAML documents.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMethod converts a wire name into a Method.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseMethod(s string) (Method, error) {
	candidate := Method(strings.ToLower(strings.TrimSpace(s)))
	if !candidate.Valid() {
		return "", fmt.Errorf("%w: unknown method %q", ErrInvalidConfiguration, s)
	}
	return candidate, nil
}

// SortByPriority orders methods in place by tie-break priority.
func SortByPriority(methods []Method) {
	// Insertion sort; the set never holds more than five entries.
	for i := 1; i < len(methods); i++ {
		for j := i; j > 0 && methods[j].Priority() < methods[j-1].Priority(); j-- {
			methods[j], methods[j-1] = methods[j-1], methods[j]
		}
	}
}
