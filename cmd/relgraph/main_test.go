package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/internal/config"
	"github.com/anthonybishopric/relgraph/pkg/relations"
	"github.com/anthonybishopric/relgraph/pkg/relations/relationstest"
	"github.com/anthonybishopric/relgraph/pkg/server"
)

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := relations.NewMemoryStore()
	require.NoError(t, store.Load(context.Background(), relationstest.Fixture()))
	srv := httptest.NewServer(server.New(server.Config{Service: relations.NewService(store, nil)}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRenderWritesSnapshot(t *testing.T) {
	srv := fixtureServer(t)
	out := filepath.Join(t.TempDir(), "graph.svg")

	rootCmd.SetArgs([]string{"render", "--data-url", srv.URL + server.PathData, "--events-url", srv.URL + server.PathEvents, "--filter", "action=1", "--select", "3", "-o", out})
	require.NoError(t, rootCmd.Execute())

	svg, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "crowd")
	assert.Contains(t, string(svg), `class="node selected" data-key="3"`)
}

func TestRenderUnknownSelection(t *testing.T) {
	srv := fixtureServer(t)
	out := filepath.Join(t.TempDir(), "graph.svg")

	rootCmd.SetArgs([]string{"render", "--data-url", srv.URL + server.PathData, "--events-url", srv.URL + server.PathEvents, "--select", "404", "-o", out})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actor 404")
}

func TestReadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"actors":[{"id":1,"description":"police"}]}`), 0o644))

	seed, err := readSeedFile(path)
	require.NoError(t, err)
	assert.Len(t, seed.Actors, 1)

	_, err = readSeedFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

const (
	testSeed = `{
		"actors": [{"id": 1, "description": "mob"}, {"id": 2, "description": "sheriff"}],
		"actions": [{"id": 1, "description": "threat"}],
		"relations": [{"id": 1, "story_id": 5, "subject_id": 1, "action_id": 1, "object_id": 2}]
	}`
	testReport = "story_id,event_id,sequence_id,triplet_id,subject,action,object\n" +
		"5,1,1,9,sheriff,arrest,mob\n"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMemoryStoreSeedAndImport(t *testing.T) {
	cfg := config.StoreConfig{
		Driver: config.DriverMemory,
		Seed:   writeFile(t, "seed.json", testSeed),
		Import: writeFile(t, "report.csv", testReport),
	}
	store, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	rels, err := store.Relations(context.Background(), relations.Filter{})
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.Equal(t, relations.Relation{ID: 2, StoryID: 5, EventID: 1, SequenceID: 1, TripletID: 9, SubjectID: 2, ActionID: 2, ObjectID: 1}, rels[1])
}

func TestMemoryStoreBadReport(t *testing.T) {
	cfg := config.StoreConfig{
		Driver: config.DriverMemory,
		Import: writeFile(t, "report.csv", testReport+"five,1,1,9,mob,threat,sheriff\n"),
	}
	_, err := openStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, relations.ErrInvalidRow)
}

func TestHangupReloadsAndPurges(t *testing.T) {
	seedPath := writeFile(t, "seed.json", testSeed)
	cfg := config.StoreConfig{Driver: config.DriverMemory, Seed: seedPath}
	store, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hangup := make(chan os.Signal)
	purged := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		watchReload(ctx, hangup, store.reload, func() { purged <- struct{}{} }, zap.NewNop())
		close(done)
	}()

	// A broken seed is logged and the old data stays.
	require.NoError(t, os.WriteFile(seedPath, []byte("{"), 0o644))
	hangup <- syscall.SIGHUP
	actors, err := store.Actors(context.Background())
	require.NoError(t, err)
	assert.Len(t, actors, 2)

	require.NoError(t, os.WriteFile(seedPath, []byte(`{"actors": [{"id": 7, "description": "crowd"}]}`), 0o644))
	hangup <- syscall.SIGHUP
	select {
	case <-purged:
	case <-time.After(2 * time.Second):
		t.Fatal("cached lookups were not purged")
	}
	actors, err = store.Actors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []relations.Actor{{ID: 7, Description: "crowd"}}, actors)

	cancel()
	<-done
}

func TestImportRequiresDSN(t *testing.T) {
	t.Setenv("RELGRAPH_STORE", "memory")
	rootCmd.SetArgs([]string{"import", writeFile(t, "report.csv", testReport)})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--dsn")
}
