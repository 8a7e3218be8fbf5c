package service

import "context"

// CommitHook runs after a write touching a session has been committed.
type CommitHook func(ctx context.Context, sessionID uint)

type commitHooks []CommitHook

func (h *commitHooks) add(fn CommitHook) {
	*h = append(*h, fn)
}

func (h commitHooks) run(ctx context.Context, sessionID uint) {
	for _, fn := range h {
		fn(ctx, sessionID)
	}
}
