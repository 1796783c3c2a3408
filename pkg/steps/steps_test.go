package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/errors"
)

const (
	nameLine = `  name = "com_google_code_findbugs_jsr305",`
	tagsLine = `  tags = ["maven_coordinates=com.google.code.findbugs:jsr305:3.0.2"],`
)

func TestFilterKeepsMatchingLines(t *testing.T) {
	step := MustStep(Filter, `.*maven_coordinates=.*`)

	out := FilterExecutor{}.Process(step, []string{nameLine, tagsLine})

	assert.Equal(t, []string{tagsLine}, out)
}

func TestFilterBazelRuleOutput(t *testing.T) {
	lines := []string{`  name = "pkg",`, `  tags = ["maven_coordinates=g:a:1"],`}
	p, err := New([]Step{MustStep(Filter, `.*maven_coordinates=.*`)})
	require.NoError(t, err)

	assert.Equal(t, []string{`  tags = ["maven_coordinates=g:a:1"],`}, p.Run(lines))
}

func TestFilter(t *testing.T) {
	lines := []string{"alpha", "beta", "gamma", "delta", "alphabet"}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"single pattern", []string{"^a"}, []string{"alpha", "alphabet"}},
		{"any pattern keeps line", []string{"mm", "lt"}, []string{"gamma", "delta"}},
		{"substring search", []string{"ph"}, []string{"alpha", "alphabet"}},
		{"order preserved", []string{"delta", "alpha"}, []string{"alpha", "delta", "alphabet"}},
		{"no match", []string{"zeta"}, []string{}},
		{"empty pattern list drops all", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := NewStep(Filter, tt.patterns)
			require.NoError(t, err)

			out := FilterExecutor{}.Process(step, lines)
			assert.Equal(t, tt.want, out)

			again := FilterExecutor{}.Process(step, out)
			assert.Equal(t, out, again, "filter must be idempotent")
		})
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	lines := []string{"a", "b", "a"}
	_ = FilterExecutor{}.Process(MustStep(Filter, "a"), lines)
	assert.Equal(t, []string{"a", "b", "a"}, lines)
}

func TestExtract(t *testing.T) {
	lines := []string{nameLine, tagsLine, `  tags = ["maven_coordinates=junit:junit:4.13"],`}

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{
			name:     "first capture group",
			patterns: []string{`maven_coordinates=([^"]+)`},
			want:     []string{"com.google.code.findbugs:jsr305:3.0.2", "junit:junit:4.13"},
		},
		{
			name:     "whole match without group",
			patterns: []string{`junit:junit:[0-9.]+`},
			want:     []string{"junit:junit:4.13"},
		},
		{
			name:     "first matching pattern wins",
			patterns: []string{`name = "([^"]+)"`, `maven_coordinates=([^:]+)`},
			want:     []string{"com_google_code_findbugs_jsr305", "com.google.code.findbugs", "junit"},
		},
		{
			name:     "empty pattern list drops all",
			patterns: nil,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step, err := NewStep(Extract, tt.patterns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ExtractExecutor{}.Process(step, lines))
		})
	}
}

func TestEdit(t *testing.T) {
	step, err := NewStep(Edit, []string{`^\s+`, `,$`}, WithReplacement(""))
	require.NoError(t, err)

	out := EditExecutor{}.Process(step, []string{"  a,", "b", "   c"})
	assert.Equal(t, []string{"a", "b", "c"}, out)

	swap, err := NewStep(Edit, []string{`(\w+)@(\S+)`}, WithReplacement("$1 $2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"lodash 4.17.21"}, EditExecutor{}.Process(swap, []string{"lodash@4.17.21"}))
}

func TestSplit(t *testing.T) {
	step := MustStep(Split, `\s+`)
	out := SplitExecutor{}.Process(step, []string{"a b  c", "", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, out)

	assert.Equal(t, []string{}, SplitExecutor{}.Process(step, nil))
}

func TestNewStepInvalidPattern(t *testing.T) {
	_, err := NewStep(Filter, []string{"("})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidStep))

	assert.Panics(t, func() { MustStep(Extract, "[") })
}

func TestStepAccessors(t *testing.T) {
	s, err := NewStep(Edit, []string{"a", "b"}, WithReplacement("x"))
	require.NoError(t, err)

	assert.Equal(t, Edit, s.Kind())
	assert.Equal(t, []string{"a", "b"}, s.Patterns())
	assert.Equal(t, "x", s.Replacement())
	assert.Equal(t, "EDIT[a, b]", s.String())
}

func TestPipelineComposesInOrder(t *testing.T) {
	lines := []string{
		`java_import(`,
		nameLine,
		tagsLine,
		`)`,
		`  tags = ["maven_coordinates=com.google.guava:guava:31.1-jre"],`,
	}
	p, err := New([]Step{
		MustStep(Filter, `maven_coordinates=`),
		MustStep(Extract, `maven_coordinates=([^"]+)`),
		MustStep(Split, `:`),
	})
	require.NoError(t, err)

	out := p.Run(lines)
	assert.Equal(t, []string{
		"com.google.code.findbugs", "jsr305", "3.0.2",
		"com.google.guava", "guava", "31.1-jre",
	}, out)
	assert.Len(t, p.Steps(), 3)
}

func TestPipelineWithoutSteps(t *testing.T) {
	p, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, p.Run([]string{"a"}))
	assert.Equal(t, []string{}, p.Run(nil))
}

type claimAll struct{}

func (claimAll) Applies(Kind) bool                   { return true }
func (claimAll) Process(_ Step, l []string) []string { return l }

func TestPipelineExecutorSelection(t *testing.T) {
	tests := []struct {
		name      string
		steps     []Step
		executors []Executor
	}{
		{
			name:      "unclaimed kind",
			steps:     []Step{MustStep(Kind("SORT"), "x")},
			executors: nil,
		},
		{
			name:      "kind claimed twice",
			steps:     []Step{MustStep(Filter, "x")},
			executors: []Executor{FilterExecutor{}, claimAll{}},
		},
		{
			name:      "missing executor for second step",
			steps:     []Step{MustStep(Filter, "x"), MustStep(Extract, "x")},
			executors: []Executor{FilterExecutor{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.steps, tt.executors...)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, errors.ErrCodeInvalidStep))
		})
	}

	assert.Panics(t, func() { MustNew([]Step{MustStep(Kind("SORT"))}) })
}

func TestCustomExecutorIsUsed(t *testing.T) {
	p, err := New([]Step{MustStep(Kind("IDENTITY"))}, claimAll{})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, p.Run([]string{"keep"}))
}
