package campaign

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/core/ledger"
	"pushdispatch.app/internal/mocks"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

type delivery struct {
	tokens []string
	req    dispatch.NotificationRequest
}

type fakeDispatcher struct {
	mu         sync.Mutex
	deliveries []delivery
	fail       bool
}

func (d *fakeDispatcher) DeliverTo(_ context.Context, tokens []string, req dispatch.NotificationRequest) *dispatch.Summary {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{tokens: tokens, req: req})
	if d.fail {
		return &dispatch.Summary{Requested: len(tokens), Failed: len(tokens)}
	}
	return &dispatch.Summary{Requested: len(tokens), Succeeded: len(tokens)}
}

func (d *fakeDispatcher) byRecipient() map[string]delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]delivery, len(d.deliveries))
	for _, del := range d.deliveries {
		out[del.req.Metadata["recipientId"]] = del
	}
	return out
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.deliveries)
}

type fakeLedger struct {
	mu   sync.Mutex
	sent map[ledger.Key]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{sent: make(map[ledger.Key]bool)}
}

func (l *fakeLedger) WasSent(_ context.Context, key ledger.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent[key], nil
}

func (l *fakeLedger) MarkSent(_ context.Context, key ledger.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sent[key] {
		return false, nil
	}
	l.sent[key] = true
	return true, nil
}

type stubStates map[string]*TreatmentState

func (s stubStates) Load(_ context.Context, recipientID string) (*TreatmentState, error) {
	state, ok := s[recipientID]
	if !ok {
		return nil, errors.NewExternalAPIError(fmt.Sprintf("no state for %s", recipientID), nil)
	}
	return state, nil
}

func campaignConfig(t *testing.T, fanout string) *mocks.ConfigProvider {
	cfg := mocks.NewConfigProvider(t)
	cfg.On("GetCampaignConfig").Return(ports.CampaignConfig{
		Timezone:             "Europe/London",
		RecipientConcurrency: 4,
		StatusPolicy:         "replace",
		DeviceFanout:         fanout,
		StateTimeout:         time.Second,
	})
	return cfg
}

func newTestScheduler(t *testing.T, regs []*ports.RegistrationData, states StateSource, d Dispatcher, l SendLedger, fanout string) *Scheduler {
	repo := mocks.NewRegistrationRepository(t)
	repo.On("FindAll", mock.Anything).Return(regs, nil).Maybe()

	s, err := NewScheduler(SchedulerDependencies{
		RegistrationRepo: repo,
		States:           states,
		Ledger:           l,
		Dispatcher:       d,
		Config:           campaignConfig(t, fanout),
		Metrics:          mocks.NewMetricsCollector(t).AllowAll(),
		Logger:           mocks.NewLogger(t).AllowAll(),
	})
	require.NoError(t, err)
	return s
}

func twoRecipients() []*ports.RegistrationData {
	return []*ports.RegistrationData{
		{Token: "u1-phone", RecipientID: "u1"},
		{Token: "u2-phone", RecipientID: "u2"},
		{Token: "u1-tablet", RecipientID: "u1"},
		{Token: "anon-1", RecipientID: "anonymous"},
	}
}

func TestScheduler_RunJob_EveningSummary(t *testing.T) {
	d := &fakeDispatcher{}
	states := stubStates{"u1": activeState(4, 5), "u2": activeState(2, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	report, err := s.RunJob(context.Background(), JobEvening)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, 2, report.Sent)

	got := d.byRecipient()
	require.Len(t, got, 2)
	assert.Equal(t, []string{"u1-phone"}, got["u1"].tokens)
	assert.Contains(t, got["u1"].req.Body, "4/5")
	assert.NotContains(t, got["u1"].req.Body, "Excellent work")
	assert.Equal(t, dispatch.KindEveningSummary, got["u1"].req.Kind)
	assert.Contains(t, got["u2"].req.Body, "Excellent work")
}

func TestScheduler_RunJob_DedupAcrossFirings(t *testing.T) {
	d := &fakeDispatcher{}
	states := stubStates{"u1": activeState(1, 3), "u2": activeState(0, 3)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	_, err := s.RunJob(context.Background(), JobMorning)
	require.NoError(t, err)
	report, err := s.RunJob(context.Background(), JobMorning)
	require.NoError(t, err)

	assert.Equal(t, 2, d.count())
	assert.Equal(t, 0, report.Sent)
	assert.Equal(t, 2, report.Duplicates)
}

func TestScheduler_RunJob_StatusMessageOncePerDayAcrossJobs(t *testing.T) {
	d := &fakeDispatcher{}
	states := stubStates{"u1": {}, "u2": activeState(1, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	_, err := s.RunJob(context.Background(), JobMorning)
	require.NoError(t, err)
	_, err = s.RunJob(context.Background(), JobEvening)
	require.NoError(t, err)

	var statusSends int
	for _, del := range d.deliveries {
		if del.req.Kind == dispatch.KindNoTreatment {
			statusSends++
		}
	}
	assert.Equal(t, 1, statusSends)
	assert.Equal(t, 3, d.count())
}

func TestScheduler_RunJob_UpstreamFailureDoesNotAbortLoop(t *testing.T) {
	d := &fakeDispatcher{}
	states := stubStates{"u2": activeState(1, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	report, err := s.RunJob(context.Background(), JobEvening)

	require.NoError(t, err)
	assert.Equal(t, 1, report.Unavailable)
	assert.Equal(t, 1, report.Sent)
	_, ok := d.byRecipient()["u2"]
	assert.True(t, ok)
}

func TestScheduler_RunJob_SkipsCheckedInRecipients(t *testing.T) {
	d := &fakeDispatcher{}
	checkedIn := activeState(2, 2)
	checkedIn.CheckedInToday = true
	states := stubStates{"u1": checkedIn, "u2": activeState(0, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	report, err := s.RunJob(context.Background(), JobHourly)

	require.NoError(t, err)
	assert.Equal(t, 1, report.NoContent)
	assert.Equal(t, 1, report.Sent)
	del := d.byRecipient()["u2"]
	assert.True(t, strings.Contains(del.req.Metadata["periodKey"], "_"), "hourly key carries the hour")
}

func TestScheduler_RunJob_FanoutAll(t *testing.T) {
	d := &fakeDispatcher{}
	states := stubStates{"u1": activeState(1, 2), "u2": activeState(1, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "all")

	_, err := s.RunJob(context.Background(), JobMorning)

	require.NoError(t, err)
	assert.Equal(t, []string{"u1-phone", "u1-tablet"}, d.byRecipient()["u1"].tokens)
}

func TestScheduler_RunJob_DeliveryFailureCounted(t *testing.T) {
	d := &fakeDispatcher{fail: true}
	states := stubStates{"u1": activeState(1, 2), "u2": activeState(1, 2)}
	s := newTestScheduler(t, twoRecipients(), states, d, newFakeLedger(), "first")

	report, err := s.RunJob(context.Background(), JobMorning)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
}

func TestScheduler_RunJob_UnknownJob(t *testing.T) {
	s := newTestScheduler(t, nil, stubStates{}, &fakeDispatcher{}, newFakeLedger(), "first")

	_, err := s.RunJob(context.Background(), "weekly")

	assert.True(t, errors.IsNotFoundError(err))
}

func TestScheduler_RunJob_RegistrationLoadError(t *testing.T) {
	repo := mocks.NewRegistrationRepository(t)
	repo.On("FindAll", mock.Anything).Return(nil, errors.NewDatabaseError("db down", nil))

	s, err := NewScheduler(SchedulerDependencies{
		RegistrationRepo: repo,
		States:           stubStates{},
		Ledger:           newFakeLedger(),
		Dispatcher:       &fakeDispatcher{},
		Config:           campaignConfig(t, "first"),
		Metrics:          mocks.NewMetricsCollector(t).AllowAll(),
		Logger:           mocks.NewLogger(t).AllowAll(),
	})
	require.NoError(t, err)

	_, err = s.RunJob(context.Background(), JobMorning)

	assert.True(t, errors.IsDatabaseError(err))
}

func TestScheduler_EnabledJobsAndStartStop(t *testing.T) {
	cfg := mocks.NewConfigProvider(t)
	cfg.On("GetCampaignConfig").Return(ports.CampaignConfig{
		Timezone:    "Europe/London",
		EnabledJobs: []string{"hourly", "evening"},
	})

	s, err := NewScheduler(SchedulerDependencies{
		RegistrationRepo: mocks.NewRegistrationRepository(t),
		States:           stubStates{},
		Ledger:           newFakeLedger(),
		Dispatcher:       &fakeDispatcher{},
		Config:           cfg,
		Metrics:          mocks.NewMetricsCollector(t),
		Logger:           mocks.NewLogger(t).AllowAll(),
	})
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, JobEvening, jobs[0].Name)
	assert.Equal(t, "CRON_TZ=Europe/London 0 * * * *", jobs[1].Spec())

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))

	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	assert.NoError(t, s.Stop(ctx))
}

func TestNewScheduler_InvalidJobTimezone(t *testing.T) {
	_, err := NewScheduler(SchedulerDependencies{
		RegistrationRepo: mocks.NewRegistrationRepository(t),
		States:           stubStates{},
		Ledger:           newFakeLedger(),
		Dispatcher:       &fakeDispatcher{},
		Config:           campaignConfig(t, "first"),
		Metrics:          mocks.NewMetricsCollector(t),
		Logger:           mocks.NewLogger(t),
		Jobs:             []Job{{Name: "broken", Schedule: "0 8 * * *", Timezone: "Nowhere/Land"}},
	})

	assert.True(t, errors.IsConfigurationError(err))
}
