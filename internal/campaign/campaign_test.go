package campaign_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/applyload/internal/campaign"
	"github.com/wesleyorama2/applyload/internal/mockapi"
	"github.com/wesleyorama2/applyload/internal/session"
	"github.com/wesleyorama2/applyload/internal/throttle"
)

// fakeRunner stands in for a session.
type fakeRunner struct {
	delay  time.Duration
	err    error
	panics bool
	block  bool
	status session.OfferStatus
}

func (r *fakeRunner) Run(ctx context.Context) (*session.OfferDecision, error) {
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay):
		}
	}
	if r.panics {
		panic("boom")
	}
	if r.err != nil {
		return nil, r.err
	}
	status := r.status
	if status == "" {
		status = session.StatusSuccess
	}
	return &session.OfferDecision{ID: 1, Status: status}, nil
}

func factoryOf(r *fakeRunner) campaign.Factory {
	return func() campaign.Runner { return r }
}

func newCampaign(t *testing.T, cfg campaign.Config, factory campaign.Factory, opts ...campaign.Option) *campaign.Campaign {
	t.Helper()
	c, err := campaign.New(cfg, factory, opts...)
	require.NoError(t, err)
	return c
}

func waitOrFail(t *testing.T, c *campaign.Campaign, timeout time.Duration) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(timeout):
		t.Fatalf("campaign did not drain within %v", timeout)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  campaign.Config
	}{
		{"negative sessions", campaign.Config{Sessions: -1, Duration: time.Second}},
		{"zero duration", campaign.Config{Sessions: 1}},
		{"negative ramp delay", campaign.Config{Sessions: 1, Duration: time.Second, RampDelay: -time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := campaign.New(tt.cfg, factoryOf(&fakeRunner{})); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}

	if _, err := campaign.New(campaign.Config{Sessions: 1, Duration: time.Second}, nil); err == nil {
		t.Error("New() with nil factory error = nil, want error")
	}
}

func TestCampaign_BeforeStart(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: time.Minute}, factoryOf(&fakeRunner{}))

	assert.Equal(t, time.Duration(0), c.Elapsed())
	assert.Equal(t, time.Minute, c.Remaining())
	assert.Equal(t, campaign.PhaseInit, c.Phase())
	assert.Equal(t, int64(0), c.Launched())

	// Wait on an unstarted campaign does not block.
	c.Wait()
}

func TestCampaign_ZeroSessions(t *testing.T) {
	var hooked atomic.Bool
	c := newCampaign(t, campaign.Config{Sessions: 0, Duration: time.Minute}, factoryOf(&fakeRunner{}),
		campaign.WithOnStart(func(c *campaign.Campaign) {
			hooked.Store(c.Clock().Started())
		}))

	require.NoError(t, c.Start(context.Background()))
	waitOrFail(t, c, time.Second)

	assert.True(t, hooked.Load(), "OnStart hook should run with the clock started")
	assert.True(t, c.Clock().Started())
	assert.Equal(t, int64(0), c.Launched())
	assert.Equal(t, campaign.PhaseDone, c.Phase())
}

func TestCampaign_SelfReplenishes(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 3, Duration: 200 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 10 * time.Millisecond}))

	require.NoError(t, c.Run(context.Background()))

	snap := c.Snapshot()
	assert.Greater(t, snap.Launched, int64(3))
	assert.Equal(t, snap.Launched, snap.Completed)
	assert.Equal(t, int64(0), snap.Active)
	assert.Equal(t, int64(0), snap.Failed)
	assert.Equal(t, snap.Completed, snap.Outcomes[session.StatusSuccess])
	assert.Equal(t, campaign.PhaseDone, snap.Phase)
	assert.GreaterOrEqual(t, snap.WallTime, 200*time.Millisecond)
	assert.False(t, snap.Interrupted)
	assert.Nil(t, snap.Throttle)
}

func TestCampaign_NoRelaunchAfterExpiry(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: 20 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 60 * time.Millisecond}))

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, int64(1), c.Launched())
	assert.Equal(t, int64(1), c.Completed())
}

func TestCampaign_RampLaunchesEverySessionPastExpiry(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 5, Duration: 30 * time.Millisecond, RampDelay: 20 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 200 * time.Millisecond}))

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, int64(5), c.Launched(), "ramp-up issues every initial launch")
	assert.True(t, c.Clock().Expired(time.Now()))

	waitOrFail(t, c, 2*time.Second)
	assert.Equal(t, int64(5), c.Launched(), "no replacements after expiry")
	assert.Equal(t, int64(5), c.Completed())
}

func TestCampaign_FailedSessionsAreReplaced(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 2, Duration: 100 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 5 * time.Millisecond, err: errors.New("submission failed")}))

	require.NoError(t, c.Run(context.Background()))

	assert.Greater(t, c.Launched(), int64(2))
	assert.Equal(t, c.Launched(), c.Failed())
	assert.Equal(t, int64(0), c.Completed())
}

func TestCampaign_PanicsAreRecovered(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 2, Duration: 50 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 5 * time.Millisecond, panics: true}))

	require.NoError(t, c.Run(context.Background()))

	assert.Greater(t, c.Launched(), int64(2))
	assert.Equal(t, c.Launched(), c.Failed())
	assert.Equal(t, int64(0), c.Active())
}

func TestCampaign_CancelDrains(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 3, Duration: time.Hour},
		factoryOf(&fakeRunner{block: true}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	assert.Eventually(t, func() bool { return c.Active() == 3 }, time.Second, time.Millisecond)

	cancel()
	waitOrFail(t, c, time.Second)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.Launched)
	assert.Equal(t, int64(3), snap.Cancelled)
	assert.Equal(t, int64(0), snap.Failed)
	assert.True(t, snap.Interrupted)
}

func TestCampaign_InterruptedWithNothingRunning(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 0, Duration: time.Hour}, factoryOf(&fakeRunner{}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Run(ctx))
	assert.False(t, c.Interrupted())

	cancel()
	assert.True(t, c.Interrupted())
	assert.True(t, c.Snapshot().Interrupted)
}

func TestCampaign_CancelAfterExpiryIsNotInterrupted(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: 20 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 5 * time.Millisecond}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Run(ctx))
	time.Sleep(30 * time.Millisecond)
	cancel()

	assert.False(t, c.Snapshot().Interrupted)
}

func TestCampaign_ThrottleStats(t *testing.T) {
	bucket := throttle.NewLeakyBucket(1000)
	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: 20 * time.Millisecond},
		factoryOf(&fakeRunner{delay: 5 * time.Millisecond}), campaign.WithThrottle(bucket))

	require.NoError(t, c.Run(context.Background()))
	require.NoError(t, bucket.Wait(context.Background()))

	snap := c.Snapshot()
	require.NotNil(t, snap.Throttle)
	assert.Equal(t, 1000.0, snap.Throttle.Rate)
	assert.Equal(t, int64(1), snap.Throttle.Admitted)
}

func TestCampaign_CancelStopsRamp(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 10, Duration: time.Hour, RampDelay: time.Hour},
		factoryOf(&fakeRunner{block: true}))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, int64(1), c.Launched())
}

func TestCampaign_RampCadence(t *testing.T) {
	var (
		mu       sync.Mutex
		launches []time.Time
	)
	factory := func() campaign.Runner {
		mu.Lock()
		launches = append(launches, time.Now())
		mu.Unlock()
		return &fakeRunner{block: true}
	}

	c := newCampaign(t, campaign.Config{Sessions: 3, Duration: time.Hour, RampDelay: 50 * time.Millisecond}, factory)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	require.NoError(t, c.Start(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond, "Start returns after the last launch is issued")
	assert.Equal(t, int64(3), c.Launched())

	cancel()
	waitOrFail(t, c, time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, launches, 3)
	for i := 1; i < len(launches); i++ {
		assert.GreaterOrEqual(t, launches[i].Sub(launches[i-1]), 25*time.Millisecond)
	}
}

func TestCampaign_StartTwice(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 0, Duration: time.Second}, factoryOf(&fakeRunner{}))

	require.NoError(t, c.Start(context.Background()))
	assert.ErrorIs(t, c.Start(context.Background()), campaign.ErrAlreadyStarted)
}

func TestCampaign_Phases(t *testing.T) {
	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: 1500 * time.Millisecond},
		factoryOf(&fakeRunner{block: true}))
	assert.Equal(t, campaign.PhaseInit, c.Phase())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, campaign.PhaseSteady, c.Phase())

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, campaign.PhaseRampDown, c.Phase())

	cancel()
	waitOrFail(t, c, time.Second)
	assert.Equal(t, campaign.PhaseDone, c.Phase())
}

func TestCampaign_Outcomes(t *testing.T) {
	var n atomic.Int64
	statuses := []session.OfferStatus{session.StatusSuccess, session.StatusNoOffers, session.StatusIneligible}
	factory := func() campaign.Runner {
		return &fakeRunner{status: statuses[int(n.Add(1))%len(statuses)]}
	}

	c := newCampaign(t, campaign.Config{Sessions: 1, Duration: 30 * time.Millisecond}, factory)
	require.NoError(t, c.Run(context.Background()))

	snap := c.Snapshot()
	var total int64
	for _, count := range snap.Outcomes {
		total += count
	}
	assert.Equal(t, snap.Completed, total)
	assert.Len(t, snap.Outcomes, 3)
}

func TestSessionFactory(t *testing.T) {
	api := mockapi.New(mockapi.Config{PendingPolls: 1, Outcome: "SUCCESS"})
	server := httptest.NewServer(api)
	defer server.Close()

	opts := session.DefaultOptions()
	opts.BaseURL = server.URL
	opts.StepDwell = 0
	opts.Poll.Interval = time.Millisecond
	opts.HTTPClient = campaign.NewHTTPClient(campaign.DefaultTransportConfig())

	c := newCampaign(t, campaign.Config{Sessions: 2, Duration: 100 * time.Millisecond}, campaign.SessionFactory(opts))
	require.NoError(t, c.Run(context.Background()))

	snap := c.Snapshot()
	assert.GreaterOrEqual(t, snap.Launched, int64(2))
	assert.Equal(t, snap.Launched, snap.Completed)
	assert.Equal(t, snap.Completed, snap.Outcomes[session.StatusSuccess])
	assert.Equal(t, int(snap.Launched), api.Sessions())
	assert.Equal(t, int(snap.Launched)*2, api.Calls(mockapi.GetOffer))
}

func TestNewHTTPClient(t *testing.T) {
	cfg := campaign.DefaultTransportConfig()
	cfg.Timeout = 3 * time.Second

	client := campaign.NewHTTPClient(cfg)
	assert.Equal(t, 3*time.Second, client.Timeout)
	assert.NotNil(t, client.Transport)
}
