/*
Package resilience provides a circuit breaker for remote dependencies.

The asset HTTP loader wraps every origin request in a Breaker so that a form
host keeps answering open requests quickly (with load failures) while the
asset server is down, instead of stacking up timed out loads.

# Usage

	breaker := resilience.New("asset-origin", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, form.ErrNotFound)
		},
	})

	err := breaker.Execute(func() error {
		return fetch(ctx)
	})

# States

	Closed --[threshold failures]-> Open --[cooldown]-> Half-Open --[trial ok]-> Closed
	                                  ^                      |
	                                  +-----[trial failed]---+

Only one trial call is admitted while half-open; concurrent callers get
ErrCircuitOpen until it finishes.
*/
package resilience
