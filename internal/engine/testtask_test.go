package engine_test

import (
	"context"

	"taskflow/internal/payload"
	"taskflow/internal/task"
)

// fn builds a *task.Declared from a plain closure, giving every scenario
// test a one-line way to declare a task without touching task.Body's
// signature directly.
func fn(name string, params []string, f func(map[string]any) (any, error)) *task.Declared {
	return task.NewDeclared(name, params, func(_ context.Context, inputs map[string]any) (any, error) {
		return f(inputs)
	})
}

func constFrag(frag payload.Fragment) func(map[string]any) (any, error) {
	return func(map[string]any) (any, error) { return frag, nil }
}
