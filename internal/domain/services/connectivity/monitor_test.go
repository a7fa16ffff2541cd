package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimrid/Corre/pkg/logger"
)

type fakeChecker struct {
	mu  sync.Mutex
	err error
}

func (f *fakeChecker) Health(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeChecker) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStartsOnline(t *testing.T) {
	m := NewMonitor(&fakeChecker{}, time.Hour, logger.NewLogger("test"))
	assert.True(t, m.IsOnline())
}

func TestProbeFlipsOfflineAndBack(t *testing.T) {
	checker := &fakeChecker{err: errors.New("node unreachable")}
	m := NewMonitor(checker, 5*time.Millisecond, logger.NewLogger("test"))
	defer m.Shutdown(0)

	m.Start(context.Background())
	waitFor(t, func() bool { return !m.IsOnline() })

	checker.setErr(nil)
	waitFor(t, func() bool { return m.IsOnline() })
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	checker := &fakeChecker{}
	m := NewMonitor(checker, 5*time.Millisecond, logger.NewLogger("test"))
	defer m.Shutdown(0)

	ch := m.Subscribe()
	m.Start(context.Background())

	checker.setErr(errors.New("node unreachable"))
	select {
	case online := <-ch:
		assert.False(t, online)
	case <-time.After(2 * time.Second):
		t.Fatal("no offline notification")
	}

	checker.setErr(nil)
	select {
	case online := <-ch:
		assert.True(t, online)
	case <-time.After(2 * time.Second):
		t.Fatal("no online notification")
	}
}

func TestShutdownStopsProbing(t *testing.T) {
	checker := &fakeChecker{}
	m := NewMonitor(checker, 5*time.Millisecond, logger.NewLogger("test"))
	m.Start(context.Background())

	require.NoError(t, m.Shutdown(0))
	require.NoError(t, m.Shutdown(0))

	// let any in-flight probe drain before breaking the checker
	time.Sleep(20 * time.Millisecond)
	checker.setErr(errors.New("node unreachable"))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, m.IsOnline())
}
