// File: internal/dispatch/options.go
// Author: momentics <momentics@gmail.com>
//
// setOption validation and mutation (§4.5). Kept separate from
// dispatcher.go so the option-by-option rules — which are the part most
// likely to grow — stay easy to find.

package dispatch

import (
	"time"

	"github.com/taskline/dispatcher/api"
)

// applyOption validates value for key against the current options, applies
// it, and returns the prior value. It never mutates opts on error.
func applyOption(opts *api.Options, key api.OptionKey, value any) (prior any, err error) {
	switch key {
	case api.OptPoolSizeMin:
		v, ok := asNonNegativeInt(value)
		if !ok {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be a non-negative integer"}
		}
		if v > opts.PoolSizeMax {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "POOL_SIZE_MIN must be <= POOL_SIZE_MAX"}
		}
		prior = opts.PoolSizeMin
		opts.PoolSizeMin = v
		return prior, nil

	case api.OptPoolSizeMax:
		v, ok := asNonNegativeInt(value)
		if !ok || v < 1 {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be a positive integer"}
		}
		if v < opts.PoolSizeMin {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "POOL_SIZE_MAX must be >= POOL_SIZE_MIN"}
		}
		prior = opts.PoolSizeMax
		opts.PoolSizeMax = v
		return prior, nil

	case api.OptTaskTimeout:
		v, ok := asInt(value)
		if !ok {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be an integer number of seconds, or -1 for unbounded"}
		}
		prior = int(opts.TaskTimeout / time.Second)
		if opts.TaskTimeout == 0 {
			prior = api.Unbounded
		}
		if v <= 0 {
			opts.TaskTimeout = 0
		} else {
			opts.TaskTimeout = time.Duration(v) * time.Second
		}
		return prior, nil

	case api.OptExecLimit:
		v, ok := asInt(value)
		if !ok {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be an integer, or -1 for unbounded"}
		}
		prior = opts.ExecLimit
		if v <= 0 {
			opts.ExecLimit = api.Unbounded
		} else {
			opts.ExecLimit = v
		}
		return prior, nil

	case api.OptThreadFlags:
		v, ok := asUint64(value)
		if !ok {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be an unsigned integer bitmask"}
		}
		prior = opts.ThreadFlags
		opts.ThreadFlags = v
		return prior, nil

	case api.OptIdleWorkerTimeout:
		v, ok := asNonNegativeInt(value)
		if !ok {
			return nil, &api.OptionError{Key: string(key), Value: value, Reason: "must be a non-negative integer number of seconds"}
		}
		prior = int(opts.IdleWorkerTimeout / time.Second)
		opts.IdleWorkerTimeout = time.Duration(v) * time.Second
		return prior, nil

	default:
		return nil, &api.OptionError{Key: string(key), Value: value, Reason: "unknown option"}
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

func asNonNegativeInt(v any) (int, bool) {
	n, ok := asInt(v)
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

func asUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	}
	return 0, false
}
