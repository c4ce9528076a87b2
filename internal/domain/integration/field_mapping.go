package integration

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is an outbound request body
type Payload map[string]any

// FieldRule maps one piece of a source record onto one target key.
// Extract reports false when the key must be left out of the payload.
type FieldRule[T any] struct {
	Target  string
	Extract func(src T) (any, bool)
}

// FieldTable is an ordered, declarative list of rules evaluated uniformly
// by Build. Absent values never appear in the result, not even as null.
type FieldTable[T any] []FieldRule[T]

// Build evaluates every rule against src. It performs no I/O and never fails.
func (t FieldTable[T]) Build(src T) Payload {
	out := make(Payload, len(t))
	for _, rule := range t {
		if v, ok := rule.Extract(src); ok {
			out[rule.Target] = v
		}
	}
	return out
}

// Targets lists the target keys in table order
func (t FieldTable[T]) Targets() []string {
	keys := make([]string, 0, len(t))
	for _, rule := range t {
		keys = append(keys, rule.Target)
	}
	return keys
}

// FoldPolicy decides when amount and currency are folded into a value object.
type FoldPolicy int

const (
	// FoldBoth emits {amount, currency} only when both are present
	FoldBoth FoldPolicy = iota
	// FoldEither emits the value object as soon as one part is present,
	// carrying only the parts that are
	FoldEither
)

// ---------------------------------------------------------------------------
// Rule constructors
// ---------------------------------------------------------------------------

// Required always emits the value returned by get
func Required[T, V any](target string, get func(T) V) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		return jsonValue(get(src)), true
	}}
}

// Optional emits *get(src) when the pointer is non-nil
func Optional[T, V any](target string, get func(T) *V) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		p := get(src)
		if p == nil {
			return nil, false
		}
		return jsonValue(*p), true
	}}
}

// WithDefault emits *get(src), or def when the pointer is nil
func WithDefault[T, V any](target string, get func(T) *V, def func(T) V) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		if p := get(src); p != nil {
			return jsonValue(*p), true
		}
		return jsonValue(def(src)), true
	}}
}

// List emits the slice unless it is nil. An empty, non-nil slice is sent as
// [] so an update can clear the list.
func List[T, V any](target string, get func(T) []V) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		items := get(src)
		if items == nil {
			return nil, false
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = jsonValue(item)
		}
		return out, true
	}}
}

// Constant always emits the value produced by fn. fn is called per build so
// nested maps are never shared between payloads.
func Constant[T any](target string, fn func() any) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(T) (any, bool) {
		return fn(), true
	}}
}

// Computed delegates presence and value to fn
func Computed[T any](target string, fn func(T) (any, bool)) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: fn}
}

// Money folds amount and currency into one nested value object under target.
func Money[T any](target string, policy FoldPolicy, amount func(T) *decimal.Decimal, currency func(T) *string) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		a, c := amount(src), currency(src)
		switch policy {
		case FoldBoth:
			if a == nil || c == nil {
				return nil, false
			}
		case FoldEither:
			if a == nil && c == nil {
				return nil, false
			}
		}
		value := map[string]any{}
		if a != nil {
			value["amount"] = jsonValue(*a)
		}
		if c != nil {
			value["currency"] = *c
		}
		return value, true
	}}
}

// TaggedNote emits the note composed by ComposeNote, and nothing when it is empty
func TaggedNote[T any](target string, note func(T) string, projectID func(T) string) FieldRule[T] {
	return FieldRule[T]{Target: target, Extract: func(src T) (any, bool) {
		n := ComposeNote(note(src), projectID(src))
		return n, n != ""
	}}
}

// ---------------------------------------------------------------------------
// Project tag
// ---------------------------------------------------------------------------

// ProjectTag is the machine-readable marker that links a CRM activity to a
// FieldOps project when the target schema has no field for it.
func ProjectTag(projectID string) string {
	return fmt.Sprintf("[reonic_project_id:%s]", projectID)
}

// ComposeNote appends the project tag to note on its own line and trims the
// result. The tag is only added when projectID is non-empty.
func ComposeNote(note, projectID string) string {
	if projectID == "" {
		return strings.TrimSpace(note)
	}
	tag := ProjectTag(projectID)
	if note == "" {
		return tag
	}
	return strings.TrimSpace(note + "\n" + tag)
}

// jsonValue renders decimals as JSON numbers rather than quoted strings
func jsonValue(v any) any {
	switch d := v.(type) {
	case decimal.Decimal:
		return json.Number(d.String())
	case *decimal.Decimal:
		if d == nil {
			return nil
		}
		return json.Number(d.String())
	default:
		return v
	}
}

func deref[V any](p *V) V {
	var zero V
	if p == nil {
		return zero
	}
	return *p
}
