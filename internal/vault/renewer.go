package vault

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RunTokenRenewLoop ticks at interval, calling RenewSelf each time, and
// logs success/failure. Terminates on stop (spec.md §4.6, Testable
// Property #6).
func RunTokenRenewLoop(ctx context.Context, client *Client, interval time.Duration, stop <-chan struct{}, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := client.RenewSelf(ctx); err != nil {
				log.Warn().Err(err).Msg("vault token renewal failed")
				continue
			}
			log.Debug().Msg("vault token renewed")
		}
	}
}
