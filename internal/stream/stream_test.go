package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wickrSignals/internal/domain"
	"wickrSignals/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	errors []error
	warns  []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *mockLogger) errorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

// fakeSession scripts one StreamKlines call.
type fakeSession struct {
	connectErr error
	events     []domain.KlineEvent
	failWith   error // reported through errHandler after events
}

// fakeClient implements ports.MarketDataClient; sessions beyond the script stay open until stopped.
type fakeClient struct {
	mu       sync.Mutex
	klines   []domain.Candle
	sessions []fakeSession
	calls    int
	started  []time.Time
}

func (f *fakeClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	return f.klines, nil
}

func (f *fakeClient) StreamKlines(ctx context.Context, symbol, interval string, handler func(event domain.KlineEvent), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.started = append(f.started, time.Now())
	f.mu.Unlock()

	done := make(chan struct{})
	stop := make(chan struct{})
	if idx >= len(f.sessions) {
		go func() {
			<-stop
			close(done)
		}()
		return done, stop, nil
	}

	sess := f.sessions[idx]
	if sess.connectErr != nil {
		return nil, nil, sess.connectErr
	}
	go func() {
		defer close(done)
		for _, ev := range sess.events {
			handler(ev)
		}
		if sess.failWith != nil {
			errHandler(sess.failWith)
			<-stop
		}
	}()
	return done, stop, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSubscriber captures events.
type recordingSubscriber struct {
	mu     sync.Mutex
	ticks  []domain.PriceTick
	closed []CandleClosed
}

func (r *recordingSubscriber) OnPriceTick(ctx context.Context, tick domain.PriceTick) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, tick)
	return nil
}

func (r *recordingSubscriber) OnCandleClosed(ctx context.Context, ev CandleClosed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, ev)
	return nil
}

type failingSubscriber struct{}

func (failingSubscriber) OnPriceTick(ctx context.Context, tick domain.PriceTick) error {
	return errors.New("boom")
}
func (failingSubscriber) OnCandleClosed(ctx context.Context, ev CandleClosed) error {
	return errors.New("boom")
}

type panickingSubscriber struct{}

func (panickingSubscriber) OnPriceTick(ctx context.Context, tick domain.PriceTick) error {
	panic("tick handler exploded")
}
func (panickingSubscriber) OnCandleClosed(ctx context.Context, ev CandleClosed) error {
	panic("close handler exploded")
}

type transition struct {
	from, to State
	at       time.Time
}

func newTestStream(t *testing.T, client *fakeClient, logger *mockLogger, onChange func(from, to State)) *CandleStream {
	t.Helper()
	s, err := New(Config{
		Symbol:         "BTCUSDT",
		Interval:       "1s",
		Capacity:       10,
		MinSeed:        3,
		SeedLimit:      20,
		ReconnectDelay: 30 * time.Millisecond,
		Client:         client,
		Logger:         logger,
		OnStateChange:  onChange,
	})
	require.NoError(t, err)
	return s
}

func finalEvent(c domain.Candle) domain.KlineEvent {
	return domain.KlineEvent{EventTime: c.CloseTime, Symbol: "BTCUSDT", Interval: "1s", Candle: c, IsFinal: true}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing logger", Config{Symbol: "BTCUSDT", Interval: "1s", Client: &fakeClient{}}},
		{"missing client", Config{Symbol: "BTCUSDT", Interval: "1s", Logger: &mockLogger{}}},
		{"missing symbol", Config{Interval: "1s", Client: &fakeClient{}, Logger: &mockLogger{}}},
		{"min seed above capacity", Config{Symbol: "BTCUSDT", Interval: "1s", Capacity: 5, MinSeed: 6, Client: &fakeClient{}, Logger: &mockLogger{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestSeed_InsufficientData(t *testing.T) {
	s := newTestStream(t, &fakeClient{}, &mockLogger{}, nil)

	err := s.Seed(candles(0, 2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrInsufficientSeedData))
	var seedErr *ports.InsufficientSeedDataError
	require.True(t, errors.As(err, &seedErr))
	assert.Equal(t, 3, seedErr.Required)
	assert.Equal(t, 2, seedErr.Available)
	assert.Equal(t, 0, s.Window().Len())

	require.NoError(t, s.Seed(candles(0, 15)))
	assert.Equal(t, 10, s.Window().Len())
}

func TestBootstrap_DropsOpenCandle(t *testing.T) {
	client := &fakeClient{klines: candles(0, 6)}
	s := newTestStream(t, client, &mockLogger{}, nil)
	s.now = func() time.Time { return baseTime.Add(5500 * time.Millisecond) }

	require.NoError(t, s.Bootstrap(context.Background()))
	snap := s.Window().Snapshot()
	require.Len(t, snap, 5)
	assert.Equal(t, baseTime.Add(4*time.Second), snap[4].OpenTime)
}

// clockClient adds the exchange clock to fakeClient.
type clockClient struct {
	*fakeClient
	serverTime time.Time
	err        error
}

func (c *clockClient) GetServerTime(ctx context.Context) (time.Time, error) {
	return c.serverTime, c.err
}

func TestBootstrap_UsesServerClock(t *testing.T) {
	tests := []struct {
		name       string
		serverTime time.Time
		err        error
		wantLen    int
	}{
		{"server clock keeps last candle open", baseTime.Add(5500 * time.Millisecond), nil, 5},
		{"server clock past last close", baseTime.Add(10 * time.Second), nil, 6},
		{"server clock error falls back to local", time.Time{}, errors.New("timeout"), 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &clockClient{fakeClient: &fakeClient{klines: candles(0, 6)}, serverTime: tt.serverTime, err: tt.err}
			logger := &mockLogger{}
			s, err := New(Config{Symbol: "BTCUSDT", Interval: "1s", Capacity: 10, MinSeed: 3, Client: client, Logger: logger})
			require.NoError(t, err)
			// local clock far ahead so only the server clock can keep the candle open
			s.now = func() time.Time { return baseTime.Add(time.Hour) }

			require.NoError(t, s.Bootstrap(context.Background()))
			assert.Equal(t, tt.wantLen, s.Window().Len())
			if tt.err != nil {
				assert.Len(t, logger.warns, 1)
			}
		})
	}
}

// capturingClient keeps the handler of its single session.
type capturingClient struct {
	fakeClient
	handler func(domain.KlineEvent)
}

func (c *capturingClient) StreamKlines(ctx context.Context, symbol, interval string, handler func(event domain.KlineEvent), errHandler func(err error)) (chan struct{}, chan struct{}, error) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	done := make(chan struct{})
	stop := make(chan struct{})
	go func() {
		<-stop
		close(done)
	}()
	return done, stop, nil
}

func (c *capturingClient) captured() func(domain.KlineEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler
}

func TestSession_DiscardsEventsAfterEnd(t *testing.T) {
	client := &capturingClient{}
	s, err := New(Config{Symbol: "BTCUSDT", Interval: "1s", Capacity: 10, MinSeed: 3, Client: client, Logger: &mockLogger{}})
	require.NoError(t, err)
	require.NoError(t, s.Seed(candles(0, 3)))
	rec := &recordingSubscriber{}
	s.Subscribe(rec)

	ctx, cancel := context.WithCancel(context.Background())
	ended := make(chan error, 1)
	go func() { ended <- s.session(ctx) }()

	require.Eventually(t, func() bool {
		return client.captured() != nil && s.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
	handler := client.captured()

	handler(finalEvent(candleAt(3, 103)))
	assert.Equal(t, 4, s.Window().Len())

	cancel()
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not return after cancel")
	}

	// in-flight delivery from the finished session
	handler(finalEvent(candleAt(4, 104)))
	assert.Equal(t, 4, s.Window().Len())
	assert.Len(t, rec.ticks, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.StaleEvents))
}

func TestHandleEvent_Dispatch(t *testing.T) {
	logger := &mockLogger{}
	s := newTestStream(t, &fakeClient{}, logger, nil)
	require.NoError(t, s.Seed(candles(0, 3)))

	rec := &recordingSubscriber{}
	s.Subscribe(panickingSubscriber{})
	s.Subscribe(failingSubscriber{})
	s.Subscribe(rec)

	ctx := context.Background()
	provisional := candleAt(3, 200)
	s.handleEvent(ctx, domain.KlineEvent{EventTime: baseTime.Add(3500 * time.Millisecond), Candle: provisional})
	s.handleEvent(ctx, finalEvent(candleAt(3, 201)))
	s.handleEvent(ctx, finalEvent(candleAt(2, 150))) // stale

	require.Len(t, rec.ticks, 3)
	assert.False(t, rec.ticks[0].IsClosed)
	assert.Equal(t, 200.0, rec.ticks[0].Price)
	assert.True(t, rec.ticks[1].IsClosed)

	require.Len(t, rec.closed, 1)
	assert.Equal(t, 201.0, rec.closed[0].Candle.Close)
	assert.Len(t, rec.closed[0].Snapshot, 4)
	assert.Equal(t, 4, s.Window().Len())

	// 3 ticks and 1 close, each failing in two subscribers
	assert.Equal(t, 8, logger.errorCount())
	for _, err := range logger.errors {
		assert.True(t, errors.Is(err, ports.ErrSubscriberFailed))
	}

	price, ok := s.Window().LatestPrice()
	require.True(t, ok)
	assert.Equal(t, 150.0, price)
}

func TestUnsubscribe(t *testing.T) {
	s := newTestStream(t, &fakeClient{}, &mockLogger{}, nil)
	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	idA := s.Subscribe(a)
	s.Subscribe(b)
	s.Unsubscribe(idA)
	s.Unsubscribe(999)

	s.handleEvent(context.Background(), finalEvent(candleAt(0, 1)))
	assert.Empty(t, a.ticks)
	assert.Len(t, b.ticks, 1)
	assert.Len(t, b.closed, 1)
}

func TestRun_ReconnectKeepsBuffer(t *testing.T) {
	seed := candles(0, 5)
	live := candleAt(5, 300)
	client := &fakeClient{sessions: []fakeSession{
		{events: []domain.KlineEvent{finalEvent(live)}, failWith: errors.New("read: connection reset by peer")},
	}}

	var mu sync.Mutex
	var transitions []transition
	s := newTestStream(t, client, &mockLogger{}, func(from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, transition{from: from, to: to, at: time.Now()})
	})
	require.NoError(t, s.Seed(seed))

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return client.callCount() == 2 && s.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	snap := s.Window().Snapshot()
	require.Len(t, snap, 6)
	assert.Equal(t, seed, snap[:5])
	assert.Equal(t, live, snap[5])

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, StateDisconnected, s.State())

	mu.Lock()
	defer mu.Unlock()
	var got []State
	for _, tr := range transitions {
		got = append(got, tr.to)
	}
	assert.Equal(t, []State{
		StateConnecting, StateConnected, StateDisconnected,
		StateConnecting, StateConnected, StateDisconnected,
	}, got)
	assert.GreaterOrEqual(t, transitions[3].at.Sub(transitions[2].at), 30*time.Millisecond)
}

func TestRun_RetriesAfterConnectError(t *testing.T) {
	client := &fakeClient{sessions: []fakeSession{
		{connectErr: errors.New("dial tcp: connection refused")},
		{connectErr: errors.New("dial tcp: connection refused")},
	}}
	logger := &mockLogger{}
	s := newTestStream(t, client, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return client.callCount() == 3 && s.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)

	client.mu.Lock()
	gap := client.started[1].Sub(client.started[0])
	client.mu.Unlock()
	assert.GreaterOrEqual(t, gap, 30*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "state(7)", State(7).String())
}
