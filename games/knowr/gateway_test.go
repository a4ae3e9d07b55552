package knowr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/knowr/storage"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

type logRecorder struct {
	mu   sync.Mutex
	msgs []string
}

func (l *logRecorder) logf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func (l *logRecorder) contains(s string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

func closeGateway(t *testing.T, g *Gateway) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestGateway_LoadAbsent(t *testing.T) {
	g := NewGateway(storage.NewMemory(), nil)
	defer closeGateway(t, g)

	if _, ok := g.Load(context.Background()); ok {
		t.Error("Load on an empty store reported a snapshot")
	}
}

func TestGateway_LoadCorrupt(t *testing.T) {
	store := storage.NewMemory()
	_ = store.Put(context.Background(), StateKey, []byte(`{not json`))

	logs := &logRecorder{}
	g := NewGateway(store, logs.logf)
	defer closeGateway(t, g)

	if _, ok := g.Load(context.Background()); ok {
		t.Error("Load of a corrupt snapshot reported a snapshot")
	}
	if !logs.contains("Failed to load state") {
		t.Errorf("corrupt load not logged: %v", logs.msgs)
	}
}

func TestGateway_SaveThenLoad(t *testing.T) {
	store := storage.NewMemory()
	g := NewGateway(store, nil)

	g.Save(Snapshot{Players: []Player{{ID: "1", Name: "A"}}, TargetID: "1", Scores: map[string]int{"1": 1}})
	g.Save(Snapshot{Players: []Player{{ID: "1", Name: "A"}}, TargetID: "1", Scores: map[string]int{"1": 2}})
	closeGateway(t, g)

	data, ok, err := store.Get(context.Background(), StateKey)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}

	want := `{"players":[{"id":"1","name":"A"}],"targetId":"1","scores":{"1":2}}`
	if string(data) != want {
		t.Errorf("stored %s, want %s", data, want)
	}

	g = NewGateway(store, nil)
	defer closeGateway(t, g)

	snap, ok := g.Load(context.Background())
	if !ok {
		t.Fatal("Load reported no snapshot")
	}
	if snap.Scores["1"] != 2 {
		t.Errorf("score %d, want 2", snap.Scores["1"])
	}
}

func TestGateway_FailuresAreLogged(t *testing.T) {
	logs := &logRecorder{}
	g := NewGateway(failingStore{}, logs.logf)

	if _, ok := g.Load(context.Background()); ok {
		t.Error("Load from a failing store reported a snapshot")
	}

	g.Save(Snapshot{})
	closeGateway(t, g)

	if !logs.contains("Failed to save state") {
		t.Errorf("save failure not logged: %v", logs.msgs)
	}

	g.Save(Snapshot{})
	if !logs.contains("Dropped save after close") {
		t.Errorf("save after close not logged: %v", logs.msgs)
	}
}

func TestGateway_SessionSink(t *testing.T) {
	store := storage.NewMemory()
	g := NewGateway(store, nil)

	s := NewSession(DefaultCatalog(), WithIDFunc(seqIDs()), WithSnapshotSink(g.Save))
	s.AddPlayer("Alice")
	s.AddPlayer("Bob")
	s.StartGame()
	playRound(t, s, ChoiceFirst, ChoiceFirst)
	closeGateway(t, g)

	restored := NewSession(DefaultCatalog())
	g = NewGateway(store, nil)
	defer closeGateway(t, g)

	snap, ok := g.Load(context.Background())
	if !ok {
		t.Fatal("nothing was saved")
	}
	restored.Restore(snap)

	if len(restored.Players()) != 2 || restored.TargetID() != "1" || restored.Scores()["2"] != 1 {
		t.Errorf("restored players %v target %q scores %v",
			restored.Players(), restored.TargetID(), restored.Scores())
	}
}
