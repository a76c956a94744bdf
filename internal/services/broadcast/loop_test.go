package broadcast

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/judgeportal/internal/dependencies/mocks"
	"github.com/mcoot/judgeportal/internal/model"
	"github.com/mcoot/judgeportal/internal/services/catalog"
	"github.com/mcoot/judgeportal/internal/testutil"
)

// recordingPublisher collects published snapshots
type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []*model.Snapshot
	published chan *model.Snapshot
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{published: make(chan *model.Snapshot, 16)}
}

func (p *recordingPublisher) Publish(snapshot *model.Snapshot) {
	p.mu.Lock()
	p.snapshots = append(p.snapshots, snapshot)
	p.mu.Unlock()
	p.published <- snapshot
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

// blockingSource stalls Layout calls while blocked is set. With hung set
// the stall ignores ctx, like a listing on an unresponsive mount.
type blockingSource struct {
	*catalog.Service
	mu      sync.Mutex
	blocked bool
	hung    chan struct{}
	stalled atomic.Int32
}

func (b *blockingSource) setHung(release chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hung = release
}

func (b *blockingSource) setBlocked(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked = v
}

func (b *blockingSource) Layout(ctx context.Context) (catalog.Layout, error) {
	b.mu.Lock()
	blocked, hung := b.blocked, b.hung
	b.mu.Unlock()
	if hung != nil {
		b.stalled.Add(1)
		<-hung
		return catalog.Layout{}, errors.New("mount went away")
	}
	if blocked {
		<-ctx.Done()
		return catalog.Layout{}, ctx.Err()
	}
	return b.Service.Layout(ctx)
}

type LoopSuite struct {
	suite.Suite
	judgeDir  string
	source    *blockingSource
	publisher *recordingPublisher
	clock     *mocks.MockClock
	loop      *Loop
	ctx       context.Context
}

func TestLoopSuite(t *testing.T) {
	suite.Run(t, new(LoopSuite))
}

func (s *LoopSuite) SetupTest() {
	s.judgeDir = s.T().TempDir()
	s.write(`{"alice":{"A":{"score":10,"details":["ok"],"warnings":["w"]}}}`, "results.json")
	s.mkdir("testcases", "A")
	s.mkdir("testcases", "B")
	s.mkdir("users", "alice")
	s.write("", "testcases", "A", "test1")

	logger := testutil.NopLogger()
	s.source = &blockingSource{Service: catalog.New(s.judgeDir, logger)}
	s.publisher = newRecordingPublisher()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.loop = New(s.source, s.publisher, s.clock, Config{
		Interval:    time.Second,
		TickTimeout: 50 * time.Millisecond,
		MaxInFlight: 2,
	}, logger)
	s.ctx = context.Background()
}

func (s *LoopSuite) mkdir(parts ...string) {
	s.Require().NoError(os.MkdirAll(filepath.Join(append([]string{s.judgeDir}, parts...)...), 0o755))
}

func (s *LoopSuite) write(content string, parts ...string) {
	s.Require().NoError(os.WriteFile(filepath.Join(append([]string{s.judgeDir}, parts...)...), []byte(content), 0o644))
}

func (s *LoopSuite) startLoop() (cancel func()) {
	ctx, cancelCtx := context.WithCancel(s.ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.NoError(s.loop.Run(ctx))
	}()
	s.Require().Eventually(func() bool { return s.clock.TickerCount() == 1 }, time.Second, time.Millisecond)
	return func() {
		cancelCtx()
		<-done
	}
}

func (s *LoopSuite) awaitPublish() *model.Snapshot {
	select {
	case snap := <-s.publisher.published:
		return snap
	case <-time.After(2 * time.Second):
		s.FailNow("no snapshot published")
		return nil
	}
}

func (s *LoopSuite) TestRunOnceReadsEverything() {
	snap, err := s.loop.RunOnce(s.ctx)
	s.Require().NoError(err)

	s.Equal([]string{"A", "B"}, snap.Tests)
	s.Equal([]string{"alice"}, snap.Users)
	s.Require().Len(snap.Configs, 2)
	s.Equal("A", snap.Configs[0].Test)
	s.Equal([]string{"test1"}, snap.Configs[0].List)
	s.Equal(model.DefaultTestConfig(), snap.Configs[1].Config)
	s.Equal(float64(10), snap.Results["alice"]["A"]["score"])

	s.Same(snap, s.loop.Latest())
	s.Equal(1, s.publisher.count())
}

func (s *LoopSuite) TestMalformedResultsSkipsTick() {
	s.write("{not json", "results.json")

	_, err := s.loop.RunOnce(s.ctx)
	s.Error(err)
	s.Nil(s.loop.Latest())
	s.Equal(0, s.publisher.count())
}

func (s *LoopSuite) TestMissingResultsSkipsTick() {
	s.Require().NoError(os.Remove(filepath.Join(s.judgeDir, "results.json")))

	_, err := s.loop.RunOnce(s.ctx)
	s.ErrorIs(err, os.ErrNotExist)
	s.Equal(0, s.publisher.count())
}

func (s *LoopSuite) TestMalformedGlobalConfigSkipsTick() {
	s.write("[", "config.json")

	_, err := s.loop.RunOnce(s.ctx)
	s.Error(err)
	s.Equal(0, s.publisher.count())
}

func (s *LoopSuite) TestEmptyResultsFileIsRejected() {
	s.write("", "results.json")

	_, err := s.loop.RunOnce(s.ctx)
	s.Error(err)
}

func (s *LoopSuite) TestNullResultsBecomeEmpty() {
	s.write("null", "results.json")

	snap, err := s.loop.RunOnce(s.ctx)
	s.Require().NoError(err)
	s.NotNil(snap.Results)
	s.Empty(snap.Results)
}

func (s *LoopSuite) TestRunPublishesOnEachTick() {
	stop := s.startLoop()
	defer stop()

	s.clock.Tick()
	first := s.awaitPublish()
	s.clock.Tick()
	second := s.awaitPublish()

	s.Less(first.Seq, second.Seq)
	s.Same(second, s.loop.Latest())
}

func (s *LoopSuite) TestRunSurvivesFailedTick() {
	stop := s.startLoop()
	defer stop()

	s.write("{broken", "results.json")
	s.clock.Tick()

	// A failed tick publishes nothing and the next tick still runs
	s.Never(func() bool { return s.publisher.count() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	s.write(`{}`, "results.json")
	s.clock.Tick()
	snap := s.awaitPublish()
	s.Empty(snap.Results)
}

func (s *LoopSuite) TestStalledTickDoesNotBlockLaterTicks() {
	stop := s.startLoop()
	defer stop()

	s.source.setBlocked(true)
	s.clock.Tick()
	s.Eventually(func() bool { return len(s.loop.inFlight) == 1 }, time.Second, time.Millisecond)

	s.source.setBlocked(false)
	s.clock.Tick()
	snap := s.awaitPublish()
	s.Equal([]string{"A", "B"}, snap.Tests)
}

func (s *LoopSuite) TestHungReadReleasesSlotAtTimeout() {
	stop := s.startLoop()
	defer stop()

	release := make(chan struct{})
	defer close(release)
	s.source.setHung(release)

	// More hung ticks than slots; each one is abandoned at the tick timeout
	for i := int32(1); i <= 3; i++ {
		s.clock.Tick()
		s.Require().Eventually(func() bool { return s.source.stalled.Load() == i }, time.Second, time.Millisecond)
		s.Require().Eventually(func() bool { return len(s.loop.inFlight) == 0 }, time.Second, time.Millisecond)
	}
	s.Equal(0, s.publisher.count())

	s.source.setHung(nil)
	s.clock.Tick()
	snap := s.awaitPublish()
	s.Equal([]string{"A", "B"}, snap.Tests)
}

func (s *LoopSuite) TestStaleSnapshotNotPublished() {
	newer := &model.Snapshot{Seq: 5}
	older := &model.Snapshot{Seq: 4}

	s.True(s.loop.publish(newer))
	s.False(s.loop.publish(older))

	s.Same(newer, s.loop.Latest())
	s.Equal(1, s.publisher.count())
}

func (s *LoopSuite) TestDefaultsApplied() {
	loop := New(s.source, s.publisher, s.clock, Config{}, testutil.NopLogger())
	s.Equal(time.Second, loop.cfg.Interval)
	s.Equal(time.Second, loop.cfg.TickTimeout)
	s.Equal(1, loop.cfg.MaxInFlight)
}
