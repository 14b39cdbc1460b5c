// Package moments is the composition root of the moments store.
//
// A moment is a titled date with an optional recurrence (daily, weekly,
// monthly or yearly). The store persists moments and answers live queries
// whose results carry a countdown to each moment's next occurrence.
//
// The core (pkg/core) is independent of storage. Adapters live under
// pkg/adapters:
//
//   - fs: one JSON or YAML document per moment, editable by hand and watched
//     for external changes.
//   - sqlite: a single database file.
//   - memory: ephemeral, for tests.
//
// Usage:
//
//	svc, err := moments.New("./moments", moments.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	e, err := svc.Create(ctx, moments.Input{
//		Title:           "Mum's birthday",
//		Date:            "1961-03-14",
//		RepeatFrequency: moments.RepeatYearly,
//	})
//
//	live, err := svc.Subscribe(ctx, func(list []moments.Entity, err error) {
//		// called now, after every change and at every local midnight
//	})
//	defer live.Unsubscribe()
package moments
