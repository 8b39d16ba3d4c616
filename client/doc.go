// Package client runs HTTP exchanges as Tasks: units of work that can be
// resumed, suspended, canceled and retried, and that report exactly one
// outcome.
//
// # Building a Client
//
// Use [Build] with functional options:
//
//	c, err := client.Build(
//		client.WithConfig(cfg),
//		client.WithRequestDelegate(&retry.Delegate{Decider: retry.DefaultDecider}),
//	)
//
// # Creating Tasks
//
// The verb helpers resolve paths against the configured base URL:
//
//	t, err := c.Get(ctx, "/items", false, func(resp *client.Response, err error) {
//		if err != nil { ... }
//		fmt.Println(resp.State(), string(resp.Body()))
//	})
//
// Any [http.Request] can be wrapped with [Client.CreateTask]. Tasks created
// with startManually wait for [Task.Resume].
//
// # Delegates
//
// A [RequestDelegate] sees every request before it is sent and decides
// whether each finished attempt is retried, up to [Client.MaxRetries]
// attempts. A [TaskDelegate] answers cache, connectivity and
// authentication questions from the transport.
//
// # Completion
//
// Callbacks run on the transport goroutine unless a [Dispatcher] such as
// [NewSerialQueue] is installed. 4xx and 5xx responses are successful
// completions; inspect [Response.State] or use a [StatusRouter].
package client
