package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
	"pushdispatch.app/pkg/validation"
)

const (
	defaultSendTimeout      = 30 * time.Second
	defaultTokenConcurrency = 32
	evictionTimeout         = 10 * time.Second
)

type UseCase struct {
	registrationRepo ports.RegistrationRepository
	tokenPush        ports.TokenPushTransport
	relayPush        ports.RelayPushTransport
	metrics          ports.MetricsCollector
	logger           ports.Logger

	defaultTitle     string
	relayMarker      string
	sendTimeout      time.Duration
	tokenConcurrency int

	evictions sync.WaitGroup
	now       func() time.Time
}

type UseCaseDependencies struct {
	RegistrationRepo ports.RegistrationRepository
	TokenPush        ports.TokenPushTransport
	RelayPush        ports.RelayPushTransport
	Config           ports.ConfigProvider
	Metrics          ports.MetricsCollector
	Logger           ports.Logger
}

type SendToRecipientsParams struct {
	RecipientIDs     []string
	ContactAddresses []string
	Title            string
	Body             string
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.RegistrationRepo == nil {
		return nil, errors.NewValidationError("registration repository is required")
	}
	if deps.TokenPush == nil && deps.RelayPush == nil {
		return nil, errors.NewValidationError("at least one push transport is required")
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

	pushCfg := deps.Config.GetPushConfig()
	uc := &UseCase{
		registrationRepo: deps.RegistrationRepo,
		tokenPush:        deps.TokenPush,
		relayPush:        deps.RelayPush,
		metrics:          deps.Metrics,
		logger:           deps.Logger,
		defaultTitle:     deps.Config.GetAppConfig().DefaultTitle,
		relayMarker:      pushCfg.RelayVendorMarker,
		sendTimeout:      pushCfg.SendTimeout,
		tokenConcurrency: pushCfg.TokenConcurrency,
		now:              time.Now,
	}
	if uc.sendTimeout <= 0 {
		uc.sendTimeout = defaultSendTimeout
	}
	if uc.tokenConcurrency <= 0 {
		uc.tokenConcurrency = defaultTokenConcurrency
	}
	if uc.relayMarker == "" {
		uc.relayMarker = DefaultRelayMarker
	}
	return uc, nil
}

// Dispatch resolves the devices in scope and fans the request out to them.
// An empty device set yields a zero summary and no error.
func (uc *UseCase) Dispatch(ctx context.Context, req NotificationRequest) (*Summary, error) {
	if !validation.IsNotEmpty(req.Body) {
		return nil, errors.NewValidationError("message body is required")
	}
	if !validation.IsNotEmpty(req.Title) {
		req.Title = uc.defaultTitle
	}

	regs, err := uc.resolveDevices(ctx, req.Scope)
	if err != nil {
		return nil, err
	}

	tokens := make([]string, 0, len(regs))
	for _, r := range regs {
		tokens = append(tokens, r.Token)
	}
	return uc.deliver(ctx, tokens, req), nil
}

// SendNow broadcasts a custom message to every registered device.
func (uc *UseCase) SendNow(ctx context.Context, title, body string) (*Summary, error) {
	return uc.Dispatch(ctx, NotificationRequest{
		Title:    title,
		Body:     body,
		Kind:     KindCustom,
		Metadata: uc.customMetadata(body),
	})
}

// SendToRecipients sends a custom message to each requested recipient and
// reports every recipient separately, including those with no devices.
func (uc *UseCase) SendToRecipients(ctx context.Context, params SendToRecipientsParams) ([]RecipientSummary, error) {
	recipientIDs := validation.CompactNonEmpty(params.RecipientIDs)
	addresses := validation.CompactNonEmpty(params.ContactAddresses)
	if len(recipientIDs) == 0 && len(addresses) == 0 {
		return nil, errors.NewValidationError("recipientIds or contactAddresses is required")
	}
	if !validation.IsNotEmpty(params.Body) {
		return nil, errors.NewValidationError("message body is required")
	}

	scope := Scope{RecipientIDs: recipientIDs, ContactAddresses: addresses}
	regs, err := uc.resolveDevices(ctx, scope)
	if err != nil {
		return nil, err
	}

	req := NotificationRequest{
		Title:    params.Title,
		Body:     params.Body,
		Kind:     KindCustom,
		Metadata: uc.customMetadata(params.Body),
		Scope:    scope,
	}
	if !validation.IsNotEmpty(req.Title) {
		req.Title = uc.defaultTitle
	}

	// A device matching several requested identifiers is sent to once.
	sent := make(map[string]struct{}, len(regs))
	results := make([]RecipientSummary, 0, len(recipientIDs)+len(addresses))

	collect := func(recipient string, match func(*ports.RegistrationData) bool) {
		var tokens []string
		found := false
		for _, r := range regs {
			if !match(r) {
				continue
			}
			found = true
			if _, dup := sent[r.Token]; dup {
				continue
			}
			sent[r.Token] = struct{}{}
			tokens = append(tokens, r.Token)
		}
		if !found {
			uc.logger.Warn("No devices registered for recipient", ports.F("recipient", recipient))
			results = append(results, RecipientSummary{Recipient: recipient, Summary: newSummary("", nil)})
			return
		}
		results = append(results, RecipientSummary{
			Recipient: recipient,
			Found:     true,
			Summary:   uc.deliver(ctx, tokens, req),
		})
	}

	for _, id := range recipientIDs {
		id := id
		collect(id, func(r *ports.RegistrationData) bool { return r.RecipientID == id })
	}
	for _, addr := range addresses {
		addr := addr
		collect(addr, func(r *ports.RegistrationData) bool { return r.ContactAddress == addr })
	}

	return results, nil
}

// DeliverTo sends req to exactly the given tokens, bypassing scope resolution.
func (uc *UseCase) DeliverTo(ctx context.Context, tokens []string, req NotificationRequest) *Summary {
	if !validation.IsNotEmpty(req.Title) {
		req.Title = uc.defaultTitle
	}
	return uc.deliver(ctx, tokens, req)
}

// Drain blocks until every pending dead-token eviction has finished.
func (uc *UseCase) Drain() {
	uc.evictions.Wait()
}

func (uc *UseCase) customMetadata(body string) map[string]string {
	return map[string]string{
		"sender":      uc.defaultTitle,
		"messageType": KindCustom.String(),
		"message":     body,
		"timestamp":   uc.now().UTC().Format(time.RFC3339),
	}
}

func (uc *UseCase) resolveDevices(ctx context.Context, scope Scope) ([]*ports.RegistrationData, error) {
	if scope.IsEmpty() {
		regs, err := uc.registrationRepo.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load registrations: %w", err)
		}
		return regs, nil
	}

	regs, err := uc.registrationRepo.FindByFilter(ctx, scope.filter())
	if err != nil {
		return nil, fmt.Errorf("load scoped registrations: %w", err)
	}
	return regs, nil
}

func (uc *UseCase) deliver(ctx context.Context, tokens []string, req NotificationRequest) *Summary {
	id := uuid.NewString()
	if len(tokens) == 0 {
		uc.logger.Debug("Nothing to dispatch", ports.F("dispatchId", id), ports.F("kind", req.Kind))
		return newSummary(id, nil)
	}

	start := uc.now()
	buckets := Classify(tokens, uc.relayMarker)
	msg := req.message()

	var (
		wg            sync.WaitGroup
		tokenOutcomes []Outcome
		relayOutcomes []Outcome
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tokenOutcomes = uc.sendTokenPush(ctx, buckets.TokenPush, msg)
	}()
	go func() {
		defer wg.Done()
		relayOutcomes = uc.sendRelayPush(ctx, buckets.RelayPush, msg)
	}()
	wg.Wait()

	outcomes := append(tokenOutcomes, relayOutcomes...)
	for _, o := range outcomes {
		if o.Transport != TransportNone {
			uc.metrics.RecordDelivery(string(o.Transport), o.Success)
		}
		if o.Dead {
			uc.evict(o.Token, o.ErrorCode)
		}
	}

	summary := newSummary(id, outcomes)
	uc.metrics.ObserveDispatch(uc.now().Sub(start))
	uc.logger.Info("Dispatch completed",
		ports.F("dispatchId", id),
		ports.F("kind", req.Kind),
		ports.F("requested", summary.Requested),
		ports.F("succeeded", summary.Succeeded),
		ports.F("failed", summary.Failed),
		ports.F("deadTokens", len(summary.DeadTokens)))
	return summary
}

func (uc *UseCase) sendTokenPush(ctx context.Context, tokens []string, msg ports.PushMessage) []Outcome {
	if len(tokens) == 0 {
		return nil
	}
	outcomes := make([]Outcome, len(tokens))
	if uc.tokenPush == nil {
		for i, token := range tokens {
			outcomes[i] = noTransport(token)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(uc.tokenConcurrency)
	for i, token := range tokens {
		i, token := i, token
		g.Go(func() error {
			outcomes[i] = uc.sendOne(ctx, token, msg)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (uc *UseCase) sendOne(ctx context.Context, token string, msg ports.PushMessage) (outcome Outcome) {
	callCtx, cancel := context.WithTimeout(ctx, uc.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("Token-push transport panicked", ports.F("panic", r))
			outcome = Outcome{Token: token, Transport: TransportTokenPush, ErrorCode: ErrorCodePanic}
		}
	}()

	res := uc.tokenPush.SendOne(callCtx, token, msg)
	if res.Status != ports.DeliverySent && callCtx.Err() != nil {
		// a timed-out call never marks the token dead
		res.Status = ports.DeliveryTransient
		res.ErrorCode = ErrorCodeTimeout
	}
	return toOutcome(TransportTokenPush, token, res)
}

func (uc *UseCase) sendRelayPush(ctx context.Context, tokens []string, msg ports.PushMessage) (outcomes []Outcome) {
	if len(tokens) == 0 {
		return nil
	}
	if uc.relayPush == nil {
		outcomes = make([]Outcome, len(tokens))
		for i, token := range tokens {
			outcomes[i] = noTransport(token)
		}
		return outcomes
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("Relay-push transport panicked", ports.F("panic", r))
			outcomes = make([]Outcome, len(tokens))
			for i, token := range tokens {
				outcomes[i] = Outcome{Token: token, Transport: TransportRelayPush, ErrorCode: ErrorCodePanic}
			}
		}
	}()

	results := uc.relayPush.SendBatch(callCtx, tokens, msg)
	outcomes = make([]Outcome, len(tokens))
	for i, token := range tokens {
		if i >= len(results) {
			outcomes[i] = Outcome{Token: token, Transport: TransportRelayPush, ErrorCode: ErrorCodeMissingResult}
			continue
		}
		res := results[i]
		// relay failures never imply a dead token
		if res.Status.IsTerminal() {
			res.Status = ports.DeliveryTransient
		}
		outcomes[i] = toOutcome(TransportRelayPush, token, res)
	}
	return outcomes
}

func (uc *UseCase) evict(token, reason string) {
	uc.evictions.Add(1)
	go func() {
		defer uc.evictions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), evictionTimeout)
		defer cancel()

		if err := uc.registrationRepo.DeleteByToken(ctx, token); err != nil {
			uc.metrics.RecordEviction(false)
			uc.logger.Error("Failed to evict dead token",
				ports.F("error", err),
				ports.F("reason", reason))
			return
		}
		uc.metrics.RecordEviction(true)
		uc.logger.Info("Evicted dead token", ports.F("reason", reason))
	}()
}

func toOutcome(transport Transport, token string, res ports.DeliveryResult) Outcome {
	if res.Status == ports.DeliverySent {
		return Outcome{Token: token, Transport: transport, Success: true}
	}
	code := res.ErrorCode
	if code == "" {
		code = string(res.Status)
	}
	return Outcome{
		Token:     token,
		Transport: transport,
		ErrorCode: code,
		Dead:      res.Status.IsTerminal(),
	}
}

func noTransport(token string) Outcome {
	return Outcome{Token: token, Transport: TransportNone, ErrorCode: ErrorCodeNoTransport}
}
