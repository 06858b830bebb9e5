package cache

import "context"

// Nop disables caching. Used when the user passes --ignore-cache.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (Nop) Set(context.Context, string, string) error         { return nil }
func (Nop) Close() error                                      { return nil }
