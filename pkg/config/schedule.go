package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts what cron.New accepts: five-field expressions and
// descriptors such as "@every 5m" or "@hourly".
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateCronSchedule reports whether schedule can be registered with the
// sweeper's cron scheduler.
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}
