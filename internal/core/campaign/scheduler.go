package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"pushdispatch.app/internal/core/device"
	"pushdispatch.app/internal/core/dispatch"
	"pushdispatch.app/internal/core/ledger"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

const (
	defaultRecipientConcurrency = 8
	defaultStateTimeout         = 15 * time.Second

	resultSent        = "sent"
	resultNoContent   = "no_content"
	resultDuplicate   = "duplicate"
	resultFailed      = "failed"
	resultUnavailable = "unavailable"
)

// Dispatcher delivers a request to a fixed set of device tokens
type Dispatcher interface {
	DeliverTo(ctx context.Context, tokens []string, req dispatch.NotificationRequest) *dispatch.Summary
}

// SendLedger is the dedup store consulted before every campaign send
type SendLedger interface {
	WasSent(ctx context.Context, key ledger.Key) (bool, error)
	MarkSent(ctx context.Context, key ledger.Key) (bool, error)
}

// StateSource yields a recipient's treatment state
type StateSource interface {
	Load(ctx context.Context, recipientID string) (*TreatmentState, error)
}

type Scheduler struct {
	cron             *cron.Cron // nil until Start
	jobs             map[string]Job
	order            []string
	registrationRepo ports.RegistrationRepository
	states           StateSource
	ledger           SendLedger
	dispatcher       Dispatcher
	metrics          ports.MetricsCollector
	logger           ports.Logger

	concurrency  int
	stateTimeout time.Duration
	statusPolicy StatusPolicy
	fanout       DeviceFanout

	mu      sync.Mutex
	started bool
	running sync.WaitGroup
	now     func() time.Time
}

type SchedulerDependencies struct {
	RegistrationRepo ports.RegistrationRepository
	States           StateSource
	Ledger           SendLedger
	Dispatcher       Dispatcher
	Config           ports.ConfigProvider
	Metrics          ports.MetricsCollector
	Logger           ports.Logger
	// Jobs overrides the default catalogue.
	Jobs []Job
}

func NewScheduler(deps SchedulerDependencies) (*Scheduler, error) {
	if deps.RegistrationRepo == nil {
		return nil, errors.NewValidationError("registration repository is required")
	}
	if deps.States == nil {
		return nil, errors.NewValidationError("state source is required")
	}
	if deps.Ledger == nil {
		return nil, errors.NewValidationError("ledger is required")
	}
	if deps.Dispatcher == nil {
		return nil, errors.NewValidationError("dispatcher is required")
	}
	if deps.Config == nil {
		return nil, errors.NewValidationError("config is required")
	}
	if deps.Metrics == nil {
		return nil, errors.NewValidationError("metrics collector is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	cfg := deps.Config.GetCampaignConfig()
	jobs := deps.Jobs
	if jobs == nil {
		jobs = selectJobs(DefaultJobs(cfg.Timezone), cfg.EnabledJobs)
	}

	s := &Scheduler{
		jobs:             make(map[string]Job, len(jobs)),
		registrationRepo: deps.RegistrationRepo,
		states:           deps.States,
		ledger:           deps.Ledger,
		dispatcher:       deps.Dispatcher,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		concurrency:      cfg.RecipientConcurrency,
		stateTimeout:     cfg.StateTimeout,
		statusPolicy:     StatusPolicyFromString(cfg.StatusPolicy),
		fanout:           DeviceFanoutFromString(cfg.DeviceFanout),
		now:              time.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultRecipientConcurrency
	}
	if s.stateTimeout <= 0 {
		s.stateTimeout = defaultStateTimeout
	}

	for _, job := range jobs {
		if _, err := time.LoadLocation(job.Timezone); err != nil {
			return nil, errors.NewConfigurationError(fmt.Sprintf("job %s: invalid timezone %q", job.Name, job.Timezone), err)
		}
		if _, dup := s.jobs[job.Name]; dup {
			return nil, errors.NewConfigurationError(fmt.Sprintf("duplicate job %s", job.Name), nil)
		}
		s.jobs[job.Name] = job
		s.order = append(s.order, job.Name)
	}
	return s, nil
}

func (s *Scheduler) newCron() *cron.Cron {
	logger := cronLogger{logger: s.logger}
	return cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger)),
	)
}

func selectJobs(all []Job, enabled []string) []Job {
	if len(enabled) == 0 {
		return all
	}
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[name] = true
	}
	var out []Job
	for _, job := range all {
		if want[job.Name] {
			out = append(out, job)
		}
	}
	return out
}

// Jobs lists the configured jobs in declaration order.
func (s *Scheduler) Jobs() []Job {
	out := make([]Job, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.jobs[name])
	}
	return out
}

// Start registers every job with a fresh cron and begins firing. Calling
// Start after Stop schedules each job exactly once again.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	c := s.newCron()
	for _, name := range s.order {
		job := s.jobs[name]
		if _, err := c.AddFunc(job.Spec(), func() {
			if _, err := s.RunJob(context.Background(), job.Name); err != nil {
				s.logger.Error("Campaign job failed", ports.F("job", job.Name), ports.F("error", err))
			}
		}); err != nil {
			return errors.NewConfigurationError(fmt.Sprintf("invalid schedule for job %s", job.Name), err)
		}
		s.logger.Info("Campaign job scheduled",
			ports.F("job", job.Name),
			ports.F("schedule", job.Schedule),
			ports.F("timezone", job.Timezone))
	}

	c.Start()
	s.cron = c
	s.started = true
	return nil
}

// Stop prevents new firings and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	var cronDone context.Context
	if s.started {
		cronDone = s.cron.Stop()
		s.started = false
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if cronDone != nil {
			<-cronDone.Done()
		}
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Campaign scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for campaign jobs: %w", ctx.Err())
	}
}

// RunJob fires the named job once, immediately.
func (s *Scheduler) RunJob(ctx context.Context, name string) (*RunReport, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("campaign job %q not found", name))
	}

	s.running.Add(1)
	defer s.running.Done()

	loc, _ := time.LoadLocation(job.Timezone)
	report := &RunReport{RunID: uuid.NewString(), Job: job.Name, StartedAt: s.now()}
	now := report.StartedAt.In(loc)

	s.logger.Info("Campaign job firing",
		ports.F("job", job.Name),
		ports.F("runId", report.RunID),
		ports.F("localTime", now.Format(time.RFC3339)))

	targets, err := s.targets(ctx)
	if err != nil {
		return nil, err
	}
	report.Recipients = len(targets)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			result := s.processRecipient(ctx, job, target, now)
			s.metrics.RecordCampaignRecipient(job.Name, result)

			mu.Lock()
			defer mu.Unlock()
			switch result {
			case resultSent:
				report.Sent++
			case resultNoContent:
				report.NoContent++
			case resultDuplicate:
				report.Duplicates++
			case resultUnavailable:
				report.Unavailable++
			default:
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = s.now()
	s.logger.Info("Campaign job finished",
		ports.F("job", job.Name),
		ports.F("runId", report.RunID),
		ports.F("recipients", report.Recipients),
		ports.F("sent", report.Sent),
		ports.F("duplicates", report.Duplicates),
		ports.F("noContent", report.NoContent),
		ports.F("unavailable", report.Unavailable),
		ports.F("failed", report.Failed))
	return report, nil
}

type recipientTarget struct {
	RecipientID string
	Tokens      []string
}

// targets groups registrations by recipient, oldest device first.
func (s *Scheduler) targets(ctx context.Context) ([]recipientTarget, error) {
	regs, err := s.registrationRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}

	index := make(map[string]int)
	var targets []recipientTarget
	for _, r := range regs {
		if r.RecipientID == "" || r.RecipientID == device.AnonymousRecipient {
			continue
		}
		i, seen := index[r.RecipientID]
		if !seen {
			index[r.RecipientID] = len(targets)
			targets = append(targets, recipientTarget{RecipientID: r.RecipientID, Tokens: []string{r.Token}})
			continue
		}
		if s.fanout == FanoutAllDevices {
			targets[i].Tokens = append(targets[i].Tokens, r.Token)
		}
	}
	return targets, nil
}

func (s *Scheduler) processRecipient(ctx context.Context, job Job, target recipientTarget, now time.Time) (result string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Campaign recipient panicked",
				ports.F("job", job.Name),
				ports.F("recipientId", target.RecipientID),
				ports.F("panic", r))
			result = resultFailed
		}
	}()

	stateCtx, cancel := context.WithTimeout(ctx, s.stateTimeout)
	state, err := s.states.Load(stateCtx, target.RecipientID)
	cancel()
	if err != nil {
		s.logger.Warn("Treatment state unavailable, skipping recipient",
			ports.F("job", job.Name),
			ports.F("recipientId", target.RecipientID),
			ports.F("error", err))
		return resultUnavailable
	}

	content := Resolve(job, state, now, s.statusPolicy)
	if content == nil {
		return resultNoContent
	}

	key := ledger.NewKey(target.RecipientID, content.Kind.String(), content.Granularity, now)
	sent, err := s.ledger.WasSent(ctx, key)
	if err != nil {
		s.logger.Warn("Ledger lookup failed, relying on claim",
			ports.F("recipientId", target.RecipientID),
			ports.F("error", err))
	}
	if sent {
		return resultDuplicate
	}

	claimed, err := s.ledger.MarkSent(ctx, key)
	if err != nil {
		s.logger.Error("Failed to record campaign send",
			ports.F("recipientId", target.RecipientID),
			ports.F("kind", content.Kind),
			ports.F("claimed", claimed),
			ports.F("error", err))
	}
	if !claimed {
		return resultDuplicate
	}

	summary := s.dispatcher.DeliverTo(ctx, target.Tokens, dispatch.NotificationRequest{
		Title: content.Title,
		Body:  content.Body,
		Kind:  content.Kind,
		Metadata: map[string]string{
			"recipientId": target.RecipientID,
			"job":         job.Name,
			"periodKey":   key.PeriodKey,
		},
	})
	if summary.Succeeded == 0 {
		s.logger.Warn("Campaign send reached no device",
			ports.F("job", job.Name),
			ports.F("recipientId", target.RecipientID),
			ports.F("failed", summary.Failed))
		return resultFailed
	}
	return resultSent
}
