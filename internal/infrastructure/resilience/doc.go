/*
Package resilience provides the circuit breaker that guards calls to the FaultMaven backend.

While the backend keeps failing, the sidebar answers immediately with ErrCircuitOpen
instead of holding every query for the full request timeout.

# States

	Closed --[N consecutive failures]-> Open --[cooldown]-> Half-Open --[probe ok]-> Closed
	                                      ^                     |
	                                      +----[probe failed]---+

Only one probe is admitted while half-open; concurrent callers fail fast.

# Usage

	breaker := resilience.New(resilience.Settings{
		Failures: 5,
		Cooldown: 30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !isClientError(err)
		},
	})

	err := breaker.Do(func() error {
		return client.post(ctx, "/query", body, &out)
	})
*/
package resilience
