//go:build rp2040 || rp2350

package scheduler

import "runtime/interrupt"

type critState = interrupt.State

func critEnter() critState { return interrupt.Disable() }

func critExit(s critState) { interrupt.Restore(s) }
