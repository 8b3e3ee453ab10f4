package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore()
	s.now = clock.Now
	return s, clock
}

func TestStore_Lifecycle(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	_, ok := s.Get(1)
	require.False(t, ok)

	s.Start(1, FlowRegistration, StateChoosingLanguage, Data{ReferralCode: "ABC12345"})
	sess, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, FlowRegistration, sess.Flow)
	require.Equal(t, "ABC12345", sess.Data.ReferralCode)

	sess.State = StateEnteringPhone
	sess.Data.Language = "uz"
	require.True(t, s.Save(sess))

	sess, _ = s.Get(1)
	require.Equal(t, StateEnteringPhone, sess.State)
	require.Equal(t, "uz", sess.Data.Language)

	s.Delete(1)
	_, ok = s.Get(1)
	require.False(t, ok)
	require.False(t, s.Save(sess), "deleted session is not resurrected")
}

func TestStore_StartAbandonsOpenFlow(t *testing.T) {
	t.Parallel()
	s, clock := newTestStore()

	s.Start(1, FlowVote, StateScreenshotRequest, Data{Project: models.ProjectRef{Source: models.SourceAdhoc, ID: 1}})
	stale, _ := s.Get(1)

	clock.Advance(time.Second)
	s.Start(1, FlowWithdrawal, StateChoosingMethod, Data{})

	sess, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, FlowWithdrawal, sess.Flow)
	require.Zero(t, sess.Data.Project)
	require.False(t, s.Save(stale), "abandoned flow cannot overwrite the new one")
	require.Equal(t, 1, s.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	s.Start(1, FlowVote, StateScreenshotReceived, Data{Screenshots: []string{"a"}})
	sess, _ := s.Get(1)
	sess.Data.Screenshots[0] = "mutated"
	sess.Data.Screenshots = append(sess.Data.Screenshots, "b")

	again, _ := s.Get(1)
	require.Equal(t, []string{"a"}, again.Data.Screenshots)
}

func TestStore_Reap(t *testing.T) {
	t.Parallel()
	s, clock := newTestStore()

	s.Start(1, FlowVote, StateScreenshotRequest, Data{})
	clock.Advance(20 * time.Minute)
	s.Start(2, FlowWithdrawal, StateChoosingMethod, Data{})
	clock.Advance(15 * time.Minute)

	require.Equal(t, []int64{1}, s.Reap(30*time.Minute))
	_, ok := s.Get(1)
	require.False(t, ok)
	_, ok = s.Get(2)
	require.True(t, ok)

	t.Run("save refreshes activity", func(t *testing.T) {
		sess, _ := s.Get(2)
		require.True(t, s.Save(sess))
		clock.Advance(20 * time.Minute)
		require.Empty(t, s.Reap(30*time.Minute))
	})
}

func TestStore_RunReaperStopsOnCancel(t *testing.T) {
	s, clock := newTestStore()
	s.Start(1, FlowBroadcast, StateCollectContent, Data{})
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	reaped := make(chan []int64, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.RunReaper(ctx, time.Millisecond, 30*time.Minute, func(ids []int64) {
			select {
			case reaped <- ids:
			default:
			}
		})
	}()

	select {
	case ids := <-reaped:
		require.Equal(t, []int64{1}, ids)
	case <-time.After(2 * time.Second):
		t.Fatal("reaper did not run")
	}

	cancel()
	<-done
	require.Zero(t, s.Len())
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore()

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Start(id, FlowVote, StateScreenshotRequest, Data{})
			sess, ok := s.Get(id)
			if ok {
				sess.Data.Screenshots = append(sess.Data.Screenshots, "x")
				s.Save(sess)
			}
			s.Reap(time.Hour)
		}(int64(i))
	}
	wg.Wait()
	require.Equal(t, 16, s.Len())
}
