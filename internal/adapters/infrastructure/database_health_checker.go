package infrastructure

import (
	"context"
	"time"

	"gorm.io/gorm"
	"pushdispatch.app/internal/ports"
)

// DatabaseHealthChecker pings the registration store and reports how many
// devices it holds along with connection pool usage.
type DatabaseHealthChecker struct {
	db            *gorm.DB
	registrations ports.RegistrationRepository
}

// NewDatabaseHealthChecker reports the registration count only when
// registrations is non-nil.
func NewDatabaseHealthChecker(db *gorm.DB, registrations ports.RegistrationRepository) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db, registrations: registrations}
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) ports.HealthStatus {
	status := ports.HealthStatus{
		Component: "database",
		Status:    "unhealthy",
		Details:   make(map[string]interface{}),
	}

	if d.db == nil {
		status.Error = "registration store is not configured"
		return status
	}

	sqlDB, err := d.db.DB()
	if err != nil {
		status.Error = "registration store connection unavailable"
		return status
	}

	start := time.Now()
	if err := sqlDB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.Details["pingMs"] = time.Since(start).Milliseconds()

	stats := sqlDB.Stats()
	status.Details["openConnections"] = stats.OpenConnections
	status.Details["inUse"] = stats.InUse

	if d.registrations != nil {
		count, err := d.registrations.Count(ctx)
		if err != nil {
			status.Error = "registrations table unreadable: " + err.Error()
			return status
		}
		status.Details["registrations"] = count
	}

	status.Status = "healthy"
	return status
}
