// Package retry provides a ready-made [client.RequestDelegate] that decides
// whether a finished attempt is retried and how long to wait first.
//
// The Client still enforces its own attempt ceiling; a Decider only says
// whether an attempt is worth repeating:
//
//	c, err := client.Build(client.WithRequestDelegate(&retry.Delegate{
//		Decider: retry.StatusCode(429, 503).Or(retry.TransientErr),
//		Waiter:  retry.NewExpWaiter(50*time.Millisecond, time.Second, nil),
//	}))
package retry
