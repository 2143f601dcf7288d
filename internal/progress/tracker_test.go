package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHeadReader struct {
	hashes []string
	calls  int
	err    error
}

func (f *fakeHeadReader) HeadCommit(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	h := f.hashes[f.calls]
	if f.calls < len(f.hashes)-1 {
		f.calls++
	}
	return h, nil
}

func TestTracker_UntrackedPhaseAlwaysProgresses(t *testing.T) {
	t.Parallel()

	tr := NewTracker(&fakeHeadReader{hashes: []string{"abc"}}, 2)
	assert.True(t, tr.Check(context.Background(), "generate-docs"))
	assert.True(t, tr.Check(context.Background(), "generate-docs"))
	assert.Equal(t, 0, tr.NoProgressCount())
}

func TestTracker_NewCommitResetsCount(t *testing.T) {
	t.Parallel()

	fake := &fakeHeadReader{hashes: []string{"a", "b", "c"}}
	tr := NewTracker(fake, 3)

	assert.True(t, tr.Check(context.Background(), "implement-step-1-attempt-1"))
	assert.Equal(t, 0, tr.NoProgressCount())
	assert.True(t, tr.Check(context.Background(), "implement-step-1-attempt-2"))
	assert.Equal(t, 0, tr.NoProgressCount())
}

func TestTracker_ExhaustsAfterTolerance(t *testing.T) {
	t.Parallel()

	fake := &fakeHeadReader{hashes: []string{"same", "same", "same", "same"}}
	tr := NewTracker(fake, 2)

	require.True(t, tr.Check(context.Background(), "implement-step-1-attempt-1"))
	assert.True(t, tr.Check(context.Background(), "implement-step-1-attempt-2"))
	assert.False(t, tr.Check(context.Background(), "implement-step-1-attempt-3"))
	assert.Equal(t, 2, tr.NoProgressCount())
}

func TestTracker_GitErrorTreatedAsNoProgress(t *testing.T) {
	t.Parallel()

	fake := &fakeHeadReader{err: assertErr{}}
	tr := NewTracker(fake, 1)

	require.True(t, tr.Check(context.Background(), "implement-step-1-attempt-1"))
	assert.False(t, tr.Check(context.Background(), "implement-step-1-attempt-2"))
}

func TestNewTracker_DefaultsTolerance(t *testing.T) {
	t.Parallel()

	tr := NewTracker(&fakeHeadReader{hashes: []string{"a"}}, 0)
	assert.Equal(t, 3, tr.tolerance)
}

type assertErr struct{}

func (assertErr) Error() string { return "git error" }
