package kit

import (
	"context"
	"time"

	"go.uber.org/fx"

	"incentivehub/services/submission"
)

var Module = fx.Module("kit",
	fx.Provide(
		NewService,
		func(s *Service) submission.KitResolver { return s },
		func(s *Service) submission.CompletionRechecker { return s },
	),
	fx.Invoke(startCacheJanitor),
)

// startCacheJanitor sweeps expired campaign snapshots so the cache does not
// grow with the number of campaigns ever read.
func startCacheJanitor(lc fx.Lifecycle, s *Service) {
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						s.campaignCache.Sweep()
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})
}
