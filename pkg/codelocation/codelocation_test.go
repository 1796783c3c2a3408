package codelocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stackscan/pkg/detect"
	serrors "github.com/matzehuels/stackscan/pkg/errors"
)

type fakeWaitable struct {
	id    string
	names []string
	delay time.Duration
	err   error
	panic bool
}

func (f fakeWaitable) ID() string      { return f.id }
func (f fakeWaitable) Names() []string { return f.names }

func (f fakeWaitable) Wait(ctx context.Context) error {
	if f.panic {
		panic("collector client bug")
	}
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestCodeLocationName(t *testing.T) {
	tests := []struct {
		loc  CodeLocation
		want string
	}{
		{CodeLocation{SourcePath: ".", Creator: "yarn-lock", Project: detect.NameVersion{Name: "web", Version: "2.0"}}, "web/2.0 yarn-lock"},
		{CodeLocation{SourcePath: "svc/api", Creator: "go-mod-graph", Project: detect.NameVersion{Name: "mono"}}, "mono/default svc/api go-mod-graph"},
		{CodeLocation{SourcePath: "svc/api/", Creator: "cargo-lock", Project: detect.NameVersion{Name: "m", Version: "1"}}, "m/1 svc/api cargo-lock"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.loc.Name())
	}
}

func TestAccumulatorDeduplicates(t *testing.T) {
	acc := NewAccumulator()

	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "1", names: []string{"a"}}))
	assert.ErrorIs(t, acc.AddWaitable(fakeWaitable{id: "1", names: []string{"z"}}), ErrDuplicateWaitable)
	assert.ErrorIs(t, acc.AddWaitable(fakeWaitable{id: "2", names: []string{"a"}}), ErrNameClaimed)

	assert.Equal(t, 2, acc.AddNonWaitable("b", "c", "b", "a"))
	assert.Equal(t, 0, acc.AddNonWaitable("c"))

	assert.Len(t, acc.Waitables(), 1)
	assert.Equal(t, []string{"b", "c"}, acc.NonWaitable())
	assert.Equal(t, 3, acc.Len())
}

func TestAccumulatorConcurrentAppend(t *testing.T) {
	acc := NewAccumulator()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_ = acc.AddWaitable(fakeWaitable{id: fmt.Sprint(i), names: []string{fmt.Sprintf("w%d", i)}})
			} else {
				acc.AddNonWaitable(fmt.Sprintf("n%d", i))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, acc.Len())
}

func TestCalculateAllSucceed(t *testing.T) {
	acc := NewAccumulator()
	const n, m = 4, 3
	for i := range n {
		require.NoError(t, acc.AddWaitable(fakeWaitable{id: fmt.Sprint(i), names: []string{fmt.Sprintf("w%d", i)}, delay: 10 * time.Millisecond}))
	}
	for i := range m {
		acc.AddNonWaitable(fmt.Sprintf("n%d", i))
	}

	res := Calculator{Timeout: time.Second}.Calculate(context.Background(), acc)

	assert.True(t, res.Complete())
	assert.NoError(t, res.Err())
	assert.Len(t, res.Names, n+m)
	assert.Equal(t, []string{"n0", "n1", "n2", "w0", "w1", "w2", "w3"}, res.Names)
}

func TestCalculateOneFailureKeepsOthers(t *testing.T) {
	acc := NewAccumulator()
	boom := errors.New("collector rejected graph")
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "ok1", names: []string{"w1"}}))
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "bad", names: []string{"w2"}, err: boom}))
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "ok2", names: []string{"w3"}}))
	acc.AddNonWaitable("n1", "n2")

	res := Calculator{Timeout: time.Second}.Calculate(context.Background(), acc)

	assert.Equal(t, []string{"n1", "n2", "w1", "w3"}, res.Names)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "bad", res.Failures[0].ID)
	assert.Equal(t, []string{"w2"}, res.Failures[0].Names)
	assert.ErrorIs(t, res.Failures[0].Err, boom)

	err := res.Err()
	require.Error(t, err)
	assert.True(t, serrors.Is(err, serrors.ErrCodeCodeLocationFailed))
	assert.ErrorIs(t, err, boom)

	diags := res.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, detect.DiagCodeLocationFailed, diags[0].Kind)
	assert.Equal(t, "collector rejected graph", diags[0].Message)
	assert.Equal(t, map[string]string{"id": "bad", "names": "w2"}, diags[0].Context)
}

func TestCalculateTimeoutDoesNotCancelSiblings(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "slow", names: []string{"slow"}, delay: time.Hour}))
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "fast", names: []string{"fast"}, delay: 150 * time.Millisecond}))

	start := time.Now()
	res := Calculator{Timeout: 300 * time.Millisecond}.Calculate(context.Background(), acc)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"fast"}, res.Names)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "slow", res.Failures[0].ID)
	assert.True(t, serrors.Is(res.Failures[0].Err, serrors.ErrCodeTimeout))
}

func TestCalculateRecoversPanics(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "p", names: []string{"p"}, panic: true}))
	acc.AddNonWaitable("n")

	res := Calculator{}.Calculate(context.Background(), acc)

	assert.Equal(t, []string{"n"}, res.Names)
	require.Len(t, res.Failures, 1)
	assert.True(t, serrors.Is(res.Failures[0].Err, serrors.ErrCodeInternal))
}

func TestCalculateCancelledRun(t *testing.T) {
	acc := NewAccumulator()
	require.NoError(t, acc.AddWaitable(fakeWaitable{id: "w", names: []string{"w"}, delay: time.Hour}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := Calculator{Timeout: time.Hour}.Calculate(ctx, acc)

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, context.Canceled)
	assert.False(t, serrors.Is(res.Failures[0].Err, serrors.ErrCodeTimeout))
}

func TestCalculateEmpty(t *testing.T) {
	res := Calculator{}.Calculate(context.Background(), NewAccumulator())
	assert.Empty(t, res.Names)
	assert.True(t, res.Complete())
}
