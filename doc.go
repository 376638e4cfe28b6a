// Package crane supervises a local chat-service inference worker.
//
// The worker is a child process that reads one JSON request per line on
// stdin and writes one JSON reply per line on stdout. A Service spawns it,
// pairs replies with calls, enforces per-method deadlines and fails every
// outstanding call when the worker dies.
//
// # Basic Usage
//
//	ctx := context.Background()
//	err := crane.WithService(ctx, func(svc crane.Service) error {
//	    if err := svc.Initialize(ctx, "/models/Qwen2.5-0.5B-Instruct"); err != nil {
//	        return err
//	    }
//
//	    resp, err := svc.Chat(ctx, &crane.ChatRequest{
//	        Messages: []crane.ChatMessage{{Role: crane.RoleUser, Content: "Hello"}},
//	    })
//	    if err != nil {
//	        return err
//	    }
//
//	    fmt.Println(resp.Message.Content)
//
//	    return nil
//	},
//	    crane.WithLogger(slog.Default()),
//	    crane.WithDevMode("/src/crane"),
//	)
//
// # Matching
//
// The worker protocol carries no request ids, so replies are paired with
// calls in the order the calls were written (MatchFIFO). A call that times
// out is dropped, and its late reply, if the worker still sends one, is
// attributed to the next call. Workers that echo an "id" field can use
// MatchByID instead:
//
//	svc := crane.NewService(crane.WithMatchPolicy(crane.MatchByID))
//
// # Error Handling
//
// Failures are typed so callers can branch on them:
//
//	resp, err := svc.Chat(ctx, req)
//	switch {
//	case errors.Is(err, crane.ErrNotInitialized):
//	    // call Initialize first
//	case errors.Is(err, crane.ErrRequestTimeout):
//	    // the worker is slow; the reply will be discarded
//	}
//	if exit, ok := errors.AsType[*crane.ProcessTerminatedError](err); ok {
//	    log.Printf("worker died with code %d: %s", exit.ExitCode, exit.Stderr)
//	}
//
// # Locating the Worker
//
// Without WithWorkerPath, the chat-service binary is searched for in the
// development dist directory, via cargo in development mode, in the packaged
// resources directory and finally on $PATH.
package crane
