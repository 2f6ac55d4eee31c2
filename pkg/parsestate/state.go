// Package parsestate tracks the context-sensitive exclusions active while
// parsing wikitext.
//
// A State is an immutable snapshot of four stacks. Every mutation returns a
// new snapshot drawn from a process-wide intern table, so two snapshots with
// equal contents are always the same pointer and can be compared with ==.
// A grammar rule receives a snapshot on entry and simply drops it on exit;
// backtracking restores the caller's snapshot by value.
package parsestate

import (
	"strconv"
	"strings"
	"sync"
)

// Category names one of the exclusion stacks.
type Category int

const (
	// No holds patterns that must not match at the current position.
	No Category = iota
	// IfNot holds patterns of which only the innermost applies.
	IfNot
	// BolSkip holds begin-of-line prefixes, concatenated in push order.
	BolSkip
	// WsPreOff holds On/Off flags for leading-space preformatted blocks.
	WsPreOff

	numCategories
)

func (c Category) String() string {
	switch c {
	case No:
		return "no"
	case IfNot:
		return "ifnot"
	case BolSkip:
		return "bol_skip"
	case WsPreOff:
		return "wspre_off"
	default:
		return "category(" + strconv.Itoa(int(c)) + ")"
	}
}

// Values pushed to WsPreOff.
const (
	Off = "off"
	On  = "on"
)

// State is an interned exclusion snapshot. The zero value is not usable;
// start from Empty.
type State struct {
	stacks [numCategories][]string
	key    string
}

var (
	intern sync.Map // canonical key -> *State
	empty  = internState(&State{})
)

// Empty returns the canonical snapshot with every stack empty.
func Empty() *State { return empty }

// CacheSize returns the number of distinct snapshots interned so far.
func CacheSize() int {
	n := 0
	intern.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func encode(stacks *[numCategories][]string) string {
	var sb strings.Builder
	for c := range stacks {
		sb.WriteString(strconv.Itoa(len(stacks[c])))
		sb.WriteByte(':')
		for _, rule := range stacks[c] {
			sb.WriteString(strconv.Itoa(len(rule)))
			sb.WriteByte('|')
			sb.WriteString(rule)
		}
		sb.WriteByte(';')
	}
	return sb.String()
}

func internState(s *State) *State {
	s.key = encode(&s.stacks)
	if v, ok := intern.Load(s.key); ok {
		return v.(*State)
	}
	v, _ := intern.LoadOrStore(s.key, s)
	return v.(*State)
}

// derive copies s, applies fn to the stack of cat and interns the result.
func (s *State) derive(cat Category, fn func([]string) []string) *State {
	next := &State{}
	for c := range s.stacks {
		if Category(c) == cat {
			next.stacks[c] = fn(append([]string(nil), s.stacks[c]...))
			continue
		}
		next.stacks[c] = s.stacks[c]
	}
	return internState(next)
}

// Push returns the snapshot with rule pushed onto cat.
func (s *State) Push(cat Category, rule string) *State {
	return s.derive(cat, func(stack []string) []string {
		return append(stack, rule)
	})
}

// Pop returns the snapshot with the top of cat removed. Popping an empty
// stack is a no-op and returns s.
func (s *State) Pop(cat Category) *State {
	if len(s.stacks[cat]) == 0 {
		return s
	}
	return s.derive(cat, func(stack []string) []string {
		return stack[:len(stack)-1]
	})
}

// SetTop returns the snapshot with the top of cat replaced by rule. An empty
// stack is left untouched.
func (s *State) SetTop(cat Category, rule string) *State {
	if len(s.stacks[cat]) == 0 {
		return s
	}
	return s.derive(cat, func(stack []string) []string {
		stack[len(stack)-1] = rule
		return stack
	})
}

// Peek returns the top of cat.
func (s *State) Peek(cat Category) (string, bool) {
	stack := s.stacks[cat]
	if len(stack) == 0 {
		return "", false
	}
	return stack[len(stack)-1], true
}

// All returns a copy of the stack of cat, bottom first.
func (s *State) All(cat Category) []string {
	return append([]string(nil), s.stacks[cat]...)
}

// Depth returns the number of entries on cat.
func (s *State) Depth(cat Category) int {
	return len(s.stacks[cat])
}

// Equal reports whether s and o hold the same stacks. For interned snapshots
// this is pointer equality.
func (s *State) Equal(o *State) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.key == o.key
}

func (s *State) String() string {
	var parts []string
	for c := range s.stacks {
		if len(s.stacks[c]) == 0 {
			continue
		}
		parts = append(parts, Category(c).String()+"="+strconv.Quote(strings.Join(s.stacks[c], " ")))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
