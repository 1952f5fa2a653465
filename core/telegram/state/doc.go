// Package state keeps per-user conversation records in memory.
//
// Records are accessed through a Slot, which holds the user's lock until
// Release. Updates for one user therefore apply one at a time while other
// users proceed independently.
package state
