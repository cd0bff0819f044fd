package usecasees

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleReport posts the daily stat summary on the given cron schedule.
func (u *tgmUseCase) ScheduleReport(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(u.loc))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := u.tgmController.Send(u.orderStat(ctx, 24*time.Hour)); err != nil {
			u.logger.WithField("method", "ScheduleReport").WithError(err).Warn("telegram send")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()

	return c, nil
}
