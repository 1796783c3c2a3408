package detector

import (
	"cmp"
	stderrors "errors"
	"slices"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/matzehuels/stackscan/pkg/detect"
	"github.com/matzehuels/stackscan/pkg/errors"
)

// Rule describes one handler.
type Rule struct {
	Name         string // unique, for example "yarn-lock"
	Group        string // ecosystem group, for example "yarn"
	Language     string
	Forge        string
	Requirements string // human summary of what the handler looks for
	Buildless    bool   // works without a build tool or network
	YieldsTo     []string
	Priority     int // lower first among rules with no precedence relation
	New          func() detect.Detectable
}

// RuleSet is an ordered, validated collection of rules.
type RuleSet struct {
	rules  []Rule
	byName map[string]int
}

// NewRuleSet validates rules and orders them by precedence. It returns an
// ErrCodeInvalidConfig error for empty or duplicate names, missing
// constructors, yields to unknown rules and precedence cycles.
func NewRuleSet(rules ...Rule) (*RuleSet, error) {
	byName := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if r.Name == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "rule name must not be empty")
		}
		if r.New == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "rule %s has no constructor", r.Name)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate rule %s", r.Name)
		}
		byName[r.Name] = r
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, r := range rules {
		if err := g.AddVertex(r.Name); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add rule %s", r.Name)
		}
	}
	for _, r := range rules {
		for _, target := range r.YieldsTo {
			if _, ok := byName[target]; !ok {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "rule %s yields to unknown rule %s", r.Name, target)
			}
			// the preferred rule runs first
			err := g.AddEdge(target, r.Name)
			switch {
			case err == nil, stderrors.Is(err, graph.ErrEdgeAlreadyExists):
			case stderrors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "precedence cycle between %s and %s", r.Name, target)
			default:
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "add precedence %s -> %s", target, r.Name)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		ra, rb := byName[a], byName[b]
		return cmp.Or(cmp.Compare(ra.Priority, rb.Priority), strings.Compare(a, b)) < 0
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "order rules")
	}

	s := &RuleSet{rules: make([]Rule, len(order)), byName: make(map[string]int, len(order))}
	for i, name := range order {
		s.rules[i] = byName[name]
		s.byName[name] = i
	}
	return s, nil
}

// Rules returns the rules in evaluation order.
func (s *RuleSet) Rules() []Rule { return slices.Clone(s.rules) }

// Len returns the number of rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Rule returns the rule with the given name.
func (s *RuleSet) Rule(name string) (Rule, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Selection narrows a RuleSet.
type Selection struct {
	// Included keeps only rules whose name or group is listed. Empty keeps all.
	Included []string
	// Excluded drops rules whose name or group is listed.
	Excluded []string
	// Buildless keeps only rules that need no build tool.
	Buildless bool
}

// Select returns the rules matching sel, in the same order. Precedence
// edges to rules that were dropped are removed.
func (s *RuleSet) Select(sel Selection) (*RuleSet, error) {
	match := func(list []string, r Rule) bool {
		return slices.Contains(list, r.Name) || slices.Contains(list, r.Group)
	}

	kept := make(map[string]bool, len(s.rules))
	for _, r := range s.rules {
		switch {
		case len(sel.Included) > 0 && !match(sel.Included, r):
		case match(sel.Excluded, r):
		case sel.Buildless && !r.Buildless:
		default:
			kept[r.Name] = true
		}
	}

	var out []Rule
	for _, r := range s.rules {
		if !kept[r.Name] {
			continue
		}
		r.YieldsTo = slices.DeleteFunc(slices.Clone(r.YieldsTo), func(n string) bool { return !kept[n] })
		out = append(out, r)
	}
	return NewRuleSet(out...)
}
