package archive

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/drpcorg/decksync"
	"github.com/drpcorg/decksync/game"
	"github.com/drpcorg/decksync/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testdirs(names ...string) ([]string, func()) {
	dirs := make([]string, len(names))

	for i, name := range names {
		dirs[i] = fmt.Sprintf("arch-%s", name)
		os.RemoveAll(dirs[i])
	}

	return dirs, func() {
		for _, dir := range dirs {
			os.RemoveAll(dir)
		}
	}
}

func archState(rev uint64) *game.State {
	st := game.NewState()
	st.Revision = rev
	st.Players["alice"] = &game.Player{ID: "alice", Life: 20}
	st.Players["bob"] = &game.Player{ID: "bob", Life: 20}
	st.Zones["battlefield"] = &game.Zone{ID: "battlefield", Cards: []game.Card{
		{ID: fmt.Sprintf("c%d", rev), Name: "Bear", Owner: "bob"},
	}}
	st.Active = "alice"
	st.Priority = "alice"
	st.Refresh()
	return st
}

func entry(rev uint64) decksync.HistoryEntry {
	e := decksync.HistoryEntry{Revision: rev, State: archState(rev)}
	if rev > 0 {
		e.Action = game.Action{
			ID:           fmt.Sprintf("a%d", rev),
			Type:         game.PassPriority,
			Actor:        "alice",
			BaseRevision: rev - 1,
			Payload:      game.PassPriorityPayload{},
		}
	}
	return e
}

func TestStoreRoundTrip(t *testing.T) {
	dirs, clear := testdirs("roundtrip")
	defer clear()

	store, err := Open(dirs[0])
	require.NoError(t, err)
	defer store.Close()

	for rev := uint64(0); rev < 3; rev++ {
		require.NoError(t, store.Put("s1", entry(rev)))
	}

	seed, err := store.Get("s1", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seed.Revision)
	assert.Equal(t, game.Type(""), seed.Action.Type)
	assert.Equal(t, archState(0).Checksum, seed.State.Checksum)

	e, err := store.Get("s1", 2)
	require.NoError(t, err)
	assert.Equal(t, "a2", e.Action.ID)
	assert.Equal(t, game.PassPriority, e.Action.Type)

	_, err = store.Get("s1", 7)
	assert.ErrorIs(t, err, ErrNotArchived)
	_, err = store.Get("nosuch", 0)
	assert.ErrorIs(t, err, ErrNotArchived)

	all, err := store.List("s1")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, e := range all {
		assert.Equal(t, uint64(i), e.Revision)
	}
}

func TestStorePersistence(t *testing.T) {
	dirs, clear := testdirs("persist")
	defer clear()

	store, err := Open(dirs[0])
	require.NoError(t, err)
	for rev := uint64(0); rev < 5; rev++ {
		require.NoError(t, store.Put("s1", entry(rev)))
	}
	require.NoError(t, store.Close())

	store, err = Open(dirs[0])
	require.NoError(t, err)
	defer store.Close()

	all, err := store.List("s1")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	e, err := store.Get("s1", 4)
	require.NoError(t, err)
	assert.Equal(t, "a4", e.Action.ID)
}

func TestStoreSessionsIsolated(t *testing.T) {
	dirs, clear := testdirs("isolated")
	defer clear()

	store, err := Open(dirs[0])
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put("left", entry(0)))
	require.NoError(t, store.Put("left", entry(1)))
	require.NoError(t, store.Put("right", entry(0)))

	left, err := store.List("left")
	require.NoError(t, err)
	assert.Len(t, left, 2)

	right, err := store.List("right")
	require.NoError(t, err)
	assert.Len(t, right, 1)

	none, err := store.List("middle")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHookFor(t *testing.T) {
	dirs, clear := testdirs("hook")
	defer clear()

	store, err := Open(dirs[0])
	require.NoError(t, err)
	defer store.Close()

	s := decksync.New(decksync.Options{Logger: utils.NewDefaultLogger(slog.LevelError)})
	defer s.Close()
	s.AddHook(HookFor(store, s.ID()))

	_, err = s.Initialize(archState(0))
	require.NoError(t, err)
	a := game.Action{
		ID:           "hook-1",
		Type:         game.ChangeLife,
		Actor:        "alice",
		BaseRevision: 0,
		Payload:      game.ChangeLifePayload{Player: "alice", Delta: -2},
	}
	_, _, err = s.Apply(a)
	require.NoError(t, err)

	all, err := store.List(s.ID())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(0), all[0].Revision)
	assert.Equal(t, "hook-1", all[1].Action.ID)
	assert.Equal(t, 18, all[1].State.Players["alice"].Life)
	assert.NoError(t, all[1].State.VerifyChecksum())
}

func TestCollector(t *testing.T) {
	dirs, clear := testdirs("collector")
	defer clear()

	store, err := Open(dirs[0])
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Put("s1", entry(0)))

	col := NewCollector(store)

	descs := make(chan *prometheus.Desc, 16)
	col.Describe(descs)
	close(descs)
	count := 0
	for range descs {
		count++
	}
	assert.Equal(t, 7, count)

	metrics := make(chan prometheus.Metric, 16)
	col.Collect(metrics)
	close(metrics)
	count = 0
	for range metrics {
		count++
	}
	assert.Equal(t, 7, count)
}
