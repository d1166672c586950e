package entities

import "context"

// Task is a unit of detached work. The context belongs to the task runner, not to any request.
type Task func(ctx context.Context)
