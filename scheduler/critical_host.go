//go:build !rp2040 && !rp2350

package scheduler

import "sync"

// On the host "interrupt context" is another goroutine (ticker, audio
// completion), so the critical section is a plain mutex. It is not
// reentrant: never call Now/Call/... while holding it.
var critMu sync.Mutex

type critState struct{}

func critEnter() critState { critMu.Lock(); return critState{} }

func critExit(critState) { critMu.Unlock() }
