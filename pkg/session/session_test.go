package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mlsorensen/gobodyscale"
	"github.com/mlsorensen/gobodyscale/internal/metrics"
	"github.com/mlsorensen/gobodyscale/internal/store"
	"github.com/mlsorensen/gobodyscale/pkg/scales/mock"
	"github.com/mlsorensen/gobodyscale/pkg/scales/onebyone"
	"github.com/mlsorensen/gobodyscale/pkg/scales/onebyone/comms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"
)

var testUser = gobodyscale.UserProfile{
	Name:     "alice",
	Sex:      gobodyscale.SexFemale,
	Age:      34,
	HeightCm: 168,
	Activity: gobodyscale.ActivityMild,
	Unit:     gobodyscale.UnitKG,
}

type call struct {
	kind string
	char bluetooth.UUID
	data []byte
}

// fakeTransport records requests and never acknowledges on its own.
type fakeTransport struct {
	mu     sync.Mutex
	events gobodyscale.TransportEvents
	calls  []call
	err    error
}

func (f *fakeTransport) Bind(events gobodyscale.TransportEvents) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

func (f *fakeTransport) SubscribeNotify(_, char bluetooth.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: "subscribe", char: char})
	return f.err
}

func (f *fakeTransport) WriteCharacteristic(_, char bluetooth.UUID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{kind: "write", char: char, data: data})
	return f.err
}

func (f *fakeTransport) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type recordingMessenger struct {
	mu   sync.Mutex
	keys []string
}

func (m *recordingMessenger) Prompt(key string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
}

func (m *recordingMessenger) prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

type failingProfiles struct{}

func (failingProfiles) ActiveUser(context.Context) (gobodyscale.UserProfile, error) {
	return gobodyscale.UserProfile{}, errors.New("no profile")
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestSession(t *testing.T, transport gobodyscale.Transport, measurements gobodyscale.MeasurementStore, opts Options) (*Session, *recordingMessenger) {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	messenger := &recordingMessenger{}
	driver := onebyone.New(&gobodyscale.FoundDevice{Name: "1byone-TEST"})

	s, err := New(context.Background(), driver, transport, store.Static{User: testUser}, measurements, messenger, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, messenger
}

func TestNew_BindsTransport(t *testing.T) {
	ft := &fakeTransport{}
	s, _ := newTestSession(t, ft, store.NewMemory(), Options{})

	assert.Same(t, s, ft.events)
	assert.Equal(t, testUser, s.User())
}

func TestNew_LogsDevice(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	newTestSession(t, &fakeTransport{}, store.NewMemory(), Options{Logger: logger})

	var ready *logrus.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "session ready" {
			ready = e
		}
	}
	require.NotNil(t, ready)
	assert.Equal(t, "1byone-TEST", ready.Data["device"])
	assert.Equal(t, "1byone", ready.Data["driver"])
	assert.Equal(t, "alice", ready.Data["user"])
}

func TestNew_ProfileErrors(t *testing.T) {
	driver := onebyone.New(&gobodyscale.FoundDevice{Name: "1byone"})

	_, err := New(context.Background(), driver, &fakeTransport{}, failingProfiles{}, store.NewMemory(), nil, Options{Logger: quietLogger()})
	assert.Error(t, err)

	bad := testUser
	bad.HeightCm = 10
	_, err = New(context.Background(), driver, &fakeTransport{}, store.Static{User: bad}, store.NewMemory(), nil, Options{Logger: quietLogger()})
	assert.Error(t, err)
}

func TestSession_HandshakeOrder(t *testing.T) {
	ft := &fakeTransport{}
	s, messenger := newTestSession(t, ft, store.NewMemory(), Options{})

	require.NoError(t, s.Start())
	calls := ft.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, "subscribe", calls[0].kind)
	assert.Equal(t, comms.OneByoneNotifyCharUUID, calls[0].char)

	require.NoError(t, s.Complete())
	calls = ft.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "write", calls[1].kind)
	assert.Equal(t, comms.OneByoneCommandCharUUID, calls[1].char)
	assert.Equal(t, comms.EncodeCommand(comms.UnitCodeKG, comms.DefaultGroup).Bytes(), calls[1].data)

	require.NoError(t, s.Complete())
	assert.Equal(t, []string{gobodyscale.MessageStepOnScale}, messenger.prompts())

	select {
	case <-s.HandshakeDone():
	case <-time.After(time.Second):
		t.Fatal("handshake did not finish")
	}

	assert.ErrorIs(t, s.Complete(), gobodyscale.ErrSequenceDone)
	assert.ErrorIs(t, s.Start(), gobodyscale.ErrAlreadyStarted)
}

func TestSession_TransportFailure(t *testing.T) {
	ft := &fakeTransport{err: errors.New("radio off")}
	s, _ := newTestSession(t, ft, store.NewMemory(), Options{})

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radio off")
	assert.ErrorIs(t, s.Complete(), gobodyscale.ErrNoStepPending)
}

func TestSession_HandleNotify(t *testing.T) {
	reg := prometheus.NewRegistry()
	memory := store.NewMemory()
	now := time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC)
	s, _ := newTestSession(t, &fakeTransport{}, memory, Options{
		Metrics: metrics.New(reg),
		Now:     func() time.Time { return now },
	})

	s.HandleNotify(comms.OneByoneNotifyCharUUID, []byte{0x01, 0x02})
	s.HandleNotify(comms.OneByoneNotifyCharUUID, comms.BuildNotification(7268, 500))
	s.HandleNotify(comms.OneByoneNotifyCharUUID, comms.BuildNotification(7268, 500))

	now = now.Add(10 * time.Second)
	s.HandleNotify(comms.OneByoneNotifyCharUUID, comms.BuildNotification(7300, 500))

	all := memory.All()
	require.Len(t, all, 1)
	assert.Equal(t, 73.0, all[0].WeightKg)
	assert.Equal(t, time.Date(2024, 3, 1, 7, 30, 0, 0, time.UTC), all[0].Timestamp)

	count, err := testutil.GatherAndCount(reg, "bodyscale_frames_total", "bodyscale_measurements_total")
	require.NoError(t, err)
	assert.Equal(t, 5, count, "accepted, rejected, inserted, duplicate, merged")
}

func TestSession_ClosedIgnoresEvents(t *testing.T) {
	memory := store.NewMemory()
	s, _ := newTestSession(t, &fakeTransport{}, memory, Options{})

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s.HandleNotify(comms.OneByoneNotifyCharUUID, comms.BuildNotification(7268, 500))
	assert.Empty(t, memory.All())
	assert.ErrorIs(t, s.Start(), ErrSessionClosed)
	assert.ErrorIs(t, s.Complete(), ErrSessionClosed)
}

func TestSession_MockScaleEndToEnd(t *testing.T) {
	logger := quietLogger()
	scale := mock.New(mock.Options{
		TargetKg:  80,
		Impedance: 450,
		Interval:  5 * time.Millisecond,
		Frames:    10,
		Logger:    logger,
	})
	t.Cleanup(func() { _ = scale.Disconnect() })

	memory := store.NewMemory()
	s, messenger := newTestSession(t, scale, memory, Options{Quiet: 250 * time.Millisecond, Logger: logger})

	require.NoError(t, s.Start())

	select {
	case <-scale.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("mock scale did not finish its weigh-in")
	}

	select {
	case m := <-s.Finalized():
		assert.Equal(t, 80.0, m.WeightKg)
		assert.NotEmpty(t, m.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("weigh-in was not finalized")
	}

	all := memory.All()
	require.Len(t, all, 1, "every reading merges into one weigh-in")
	assert.Equal(t, 80.0, all[0].WeightKg)
	assert.Greater(t, all[0].FatPercent, 0.0)

	assert.Equal(t, []string{gobodyscale.MessageStepOnScale}, messenger.prompts())
	require.Len(t, scale.Writes(), 1)
	assert.Equal(t, comms.EncodeCommand(comms.UnitCodeKG, comms.DefaultGroup).Bytes(), scale.Writes()[0])
}
