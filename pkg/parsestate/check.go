package parsestate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// ErrReject is returned by the checks when the active exclusions forbid the
// current parse alternative.
var ErrReject = errors.New("parse state reject")

var patterns sync.Map // rule -> *regexp.Regexp

// compile returns the cached regexp for rule, anchored at the start of the
// input it is matched against.
func compile(rule string) (*regexp.Regexp, error) {
	if v, ok := patterns.Load(rule); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`\A(?:` + rule + `)`)
	if err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", rule, err)
	}
	v, _ := patterns.LoadOrStore(rule, re)
	return v.(*regexp.Regexp), nil
}

func matchAt(rule, src string, off int) (int, bool, error) {
	re, err := compile(rule)
	if err != nil {
		return 0, false, err
	}
	loc := re.FindStringIndex(src[off:])
	if loc == nil {
		return 0, false, nil
	}
	return loc[1], true, nil
}

// CheckNo rejects when any No rule matches src at off.
func (s *State) CheckNo(src string, off int) error {
	for _, rule := range s.stacks[No] {
		_, ok, err := matchAt(rule, src, off)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: negative lookahead %q", ErrReject, rule)
		}
	}
	return nil
}

// CheckIfNot rejects when the innermost IfNot rule matches src at off.
func (s *State) CheckIfNot(src string, off int) error {
	rule, ok := s.Peek(IfNot)
	if !ok {
		return nil
	}
	_, matched, err := matchAt(rule, src, off)
	if err != nil {
		return err
	}
	if matched {
		return fmt.Errorf("%w: ifnot lookahead %q", ErrReject, rule)
	}
	return nil
}

// CheckBolSkip matches the concatenated BolSkip prefixes at off and returns
// the number of bytes they cover. It rejects when the prefixes do not match.
func (s *State) CheckBolSkip(src string, off int) (int, error) {
	if len(s.stacks[BolSkip]) == 0 {
		return 0, nil
	}
	rule := strings.Join(s.stacks[BolSkip], "")
	n, ok, err := matchAt(rule, src, off)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: line does not continue with %q", ErrReject, rule)
	}
	return n, nil
}

// CheckWsPre rejects when leading-space preformatting is switched off.
func (s *State) CheckWsPre() error {
	if top, ok := s.Peek(WsPreOff); ok && top == Off {
		return fmt.Errorf("%w: preformatting off", ErrReject)
	}
	return nil
}
