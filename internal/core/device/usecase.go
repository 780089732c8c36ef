package device

import (
	"context"
	"fmt"
	"time"

	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
	"pushdispatch.app/pkg/validation"
)

type UseCase struct {
	registrationRepo ports.RegistrationRepository
	logger           ports.Logger
	now              func() time.Time
}

type UseCaseDependencies struct {
	RegistrationRepo ports.RegistrationRepository
	Logger           ports.Logger
}

type RegisterParams struct {
	Token          string
	RecipientID    string
	ContactAddress string
	Platform       string
}

func NewUseCase(deps UseCaseDependencies) (*UseCase, error) {
	if deps.RegistrationRepo == nil {
		return nil, errors.NewValidationError("registration repository is required")
	}
	if deps.Logger == nil {
		return nil, errors.NewValidationError("logger is required")
	}

	return &UseCase{
		registrationRepo: deps.RegistrationRepo,
		logger:           deps.Logger,
		now:              time.Now,
	}, nil
}

func (uc *UseCase) validateRegisterParams(params RegisterParams) error {
	if !validation.IsNotEmpty(params.Token) {
		return errors.NewValidationError("token is required")
	}
	if validation.IsNotEmpty(params.ContactAddress) && !validation.IsValidEmail(params.ContactAddress) {
		return errors.NewValidationError("invalid contact address format")
	}
	return nil
}

// RegisterDevice upserts a registration by token. Re-registering a token
// replaces its recipient, contact address and platform in place.
func (uc *UseCase) RegisterDevice(ctx context.Context, params RegisterParams) (*Registration, error) {
	if err := uc.validateRegisterParams(params); err != nil {
		return nil, err
	}

	recipientID, ok := validation.TrimAndValidate(params.RecipientID)
	if !ok {
		recipientID = AnonymousRecipient
	}

	if validation.IsNotEmpty(params.Platform) && !validation.IsKnownPlatform(params.Platform) {
		uc.logger.Warn("Unrecognized platform, storing as unknown", ports.F("platform", params.Platform))
	}

	now := uc.now()
	reg := &Registration{
		Token:          params.Token,
		RecipientID:    recipientID,
		ContactAddress: params.ContactAddress,
		Platform:       PlatformFromString(params.Platform),
		CreatedAt:      now,
		LastUpdated:    now,
	}

	uc.logger.Debug("Registering device",
		ports.F("recipientId", reg.RecipientID),
		ports.F("platform", reg.Platform))

	data := toPorts(reg)
	if err := uc.registrationRepo.Upsert(ctx, data); err != nil {
		return nil, fmt.Errorf("upsert registration: %w", err)
	}

	uc.logger.Info("Device registered",
		ports.F("recipientId", reg.RecipientID),
		ports.F("platform", reg.Platform))
	return fromPorts(data), nil
}

func (uc *UseCase) ListDevices(ctx context.Context) ([]*Registration, error) {
	data, err := uc.registrationRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	regs := make([]*Registration, 0, len(data))
	for _, d := range data {
		regs = append(regs, fromPorts(d))
	}
	return regs, nil
}

func (uc *UseCase) CountDevices(ctx context.Context) (int64, error) {
	count, err := uc.registrationRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func toPorts(r *Registration) *ports.RegistrationData {
	return &ports.RegistrationData{
		Token:          r.Token,
		RecipientID:    r.RecipientID,
		ContactAddress: r.ContactAddress,
		Platform:       r.Platform.String(),
		CreatedAt:      r.CreatedAt,
		LastUpdated:    r.LastUpdated,
	}
}

func fromPorts(d *ports.RegistrationData) *Registration {
	platform := PlatformFromString(d.Platform)
	return &Registration{
		Token:          d.Token,
		RecipientID:    d.RecipientID,
		ContactAddress: d.ContactAddress,
		Platform:       platform,
		CreatedAt:      d.CreatedAt,
		LastUpdated:    d.LastUpdated,
	}
}
