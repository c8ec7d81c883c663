package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/thermal-check/go-checker/internal/continuity"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func commit(t *testing.T, s *Store, check string, terminal float64, state continuity.State) RunRecord {
	t.Helper()
	rec, err := s.NewRun(check)
	require.NoError(t, err)
	rec.MSID = "1dpamzt"
	rec.Mode = continuity.ModePrediction
	rec.LoadName = "JAN0126A"
	rec.Start = terminal - 1000
	rec.Stop = terminal
	rec.TerminalTime = terminal
	rec.TerminalState = state
	rec.Verdict = "pass"
	require.NoError(t, s.CommitRun(rec))
	return rec
}

func TestHead_NoRun(t *testing.T) {
	s := tempDB(t)
	_, err := s.Head("dpa")
	assert.True(t, errors.Is(err, ErrNoRun))

	rec, err := s.NewRun("dpa")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RunID)
	assert.Empty(t, rec.ParentID)
}

func TestCommitRun_AdvancesHead(t *testing.T) {
	s := tempDB(t)
	r1 := commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18.5, "dpa0": 20})
	r2 := commit(t, s, "dpa", 2000, continuity.State{"1dpamzt": 19.25, "dpa0": 21})

	assert.Equal(t, r1.RunID, r2.ParentID)

	head, err := s.Head("dpa")
	require.NoError(t, err)
	assert.Equal(t, r2.RunID, head.RunID)
	assert.Equal(t, continuity.State{"1dpamzt": 19.25, "dpa0": 21}, head.TerminalState)
	assert.Equal(t, 2000.0, head.TerminalTime)
	assert.Equal(t, continuity.ModePrediction, head.Mode)
	assert.Equal(t, "JAN0126A", head.LoadName)
	assert.Equal(t, "pass", head.Verdict)
}

func TestHeadsAreIndependentPerCheck(t *testing.T) {
	s := tempDB(t)
	dpa := commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18})
	cea := commit(t, s, "cea", 1000, continuity.State{"2ceahvpt": 10})
	assert.Empty(t, cea.ParentID)

	head, err := s.Head("dpa")
	require.NoError(t, err)
	assert.Equal(t, dpa.RunID, head.RunID)
}

func TestRollback(t *testing.T) {
	s := tempDB(t)
	r1 := commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18})
	commit(t, s, "dpa", 2000, continuity.State{"1dpamzt": 19})

	require.NoError(t, s.Rollback("dpa", r1.RunID))
	head, err := s.Head("dpa")
	require.NoError(t, err)
	assert.Equal(t, r1.RunID, head.RunID)

	r3, err := s.NewRun("dpa")
	require.NoError(t, err)
	assert.Equal(t, r1.RunID, r3.ParentID, "next run branches from the rolled-back head")
}

func TestRollback_Errors(t *testing.T) {
	s := tempDB(t)
	r1 := commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18})

	assert.Error(t, s.Rollback("dpa", "nonexistent-id"))
	err := s.Rollback("cea", r1.RunID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to check dpa")
}

func TestListRunsAndChain(t *testing.T) {
	s := tempDB(t)
	r1 := commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18})
	r2 := commit(t, s, "dpa", 2000, continuity.State{"1dpamzt": 19})
	commit(t, s, "cea", 1000, continuity.State{"2ceahvpt": 10})

	all, err := s.ListRuns("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dpa, err := s.ListRuns("dpa", 10)
	require.NoError(t, err)
	require.Len(t, dpa, 2)
	assert.Equal(t, r2.RunID, dpa[0].RunID, "newest first")

	chain, err := s.Chain(r2.RunID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, r2.RunID, chain[0].RunID)
	assert.Equal(t, r1.RunID, chain[1].RunID)
}

func TestCommitRun_RejectsUnknownParent(t *testing.T) {
	s := tempDB(t)
	err := s.CommitRun(RunRecord{
		RunID:     "r1",
		ParentID:  "missing",
		Check:     "dpa",
		MSID:      "1dpamzt",
		Mode:      continuity.ModePrediction,
		CreatedAt: time.Now().UTC(),
	})
	assert.Error(t, err)
}

func TestCommitRun_EmptyID(t *testing.T) {
	s := tempDB(t)
	assert.Error(t, s.CommitRun(RunRecord{Check: "dpa"}))
}

func TestGetRunNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetRun("nonexistent-id")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	defer s.Close()
	commit(t, s, "dpa", 1000, continuity.State{"1dpamzt": 18})
	_, err = s.Head("dpa")
	assert.NoError(t, err)
}

func TestNewStoreInvalidPath(t *testing.T) {
	_, err := NewStore(filepath.Join(string(os.PathSeparator), "nonexistent", "deep", "path", "test.db"))
	assert.Error(t, err)
}

func TestDBAccessor(t *testing.T) {
	assert.NotNil(t, tempDB(t).DB())
}
