package notifications

import (
	"context"
	"log"
	"time"
)

// CallAsync runs a notification task on its own goroutine with a bounded
// lifetime so a slow push provider never delays the request that triggered
// it. The label identifies the task in logs.
func CallAsync(task func(ctx context.Context) error, label string) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("notification task %s panicked: %v", label, rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := task(ctx); err != nil {
			log.Printf("notification task %s failed: %v", label, err)
		}
	}()
}
