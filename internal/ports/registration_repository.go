package ports

import (
	"context"
	"time"
)

// RegistrationData represents a device registration for persistence
type RegistrationData struct {
	Token          string
	RecipientID    string
	ContactAddress string
	Platform       string
	CreatedAt      time.Time
	LastUpdated    time.Time
}

// RegistrationFilter narrows a registration lookup. Empty slices are ignored;
// non-empty ones are OR-ed together.
type RegistrationFilter struct {
	RecipientIDs     []string
	ContactAddresses []string
	Tokens           []string
}

// IsEmpty reports whether the filter selects every registration.
func (f RegistrationFilter) IsEmpty() bool {
	return len(f.RecipientIDs) == 0 && len(f.ContactAddresses) == 0 && len(f.Tokens) == 0
}

// RegistrationRepository defines the contract for device registration persistence.
// Listings are ordered by creation time, oldest first.
type RegistrationRepository interface {
	Upsert(ctx context.Context, reg *RegistrationData) error
	FindAll(ctx context.Context) ([]*RegistrationData, error)
	FindByFilter(ctx context.Context, filter RegistrationFilter) ([]*RegistrationData, error)
	Count(ctx context.Context) (int64, error)
	DeleteByToken(ctx context.Context, token string) error
}
