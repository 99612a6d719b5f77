// Package duration implements countdown timers for cluster attributes.
//
// The Identify cluster uses a timer per endpoint to end an identify session
// when IdentifyTime reaches zero.
//
// # Timer Replacement
//
// Setting a timer for a key that already has one replaces it. There is no
// stacking or accumulation.
//
// # Expiry
//
// The expiry callback runs on the timer goroutine after the timer has been
// removed from the manager, so the callback may set a new timer for the same
// key. Cancelled or replaced timers never run their callback.
package duration
