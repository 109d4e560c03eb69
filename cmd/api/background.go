package main

import (
	"context"
	"time"
)

// extendAvailabilityWindowDaily reseeds the rolling availability window once
// a day so the bookable horizon never shrinks while the server runs.
func (app *application) extendAvailabilityWindowDaily() {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := app.store.Availability.EnsureWindow(ctx, time.Now(), app.config.bookingWindowDays)
			cancel()
			if err != nil {
				app.logger.Errorf("Error extending availability window: %v", err)
			} else {
				app.logger.Infof("Availability window extended at %s", time.Now().Format(time.RFC1123))
			}
		}
	}()
}
