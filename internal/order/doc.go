// Package order defines the shared order data model, the cart builder used
// by the sending terminal, and the lifecycle engine that both terminal
// roles drive.
//
// # State machine
//
// An order is created with status NEW and advances along
//
//	NEW -> IN_PROGRESS -> READY -> DONE
//
// The engine deliberately permits skipping states (NEW directly to DONE is
// legal): operator speed is favored over strict workflow enforcement.
// Reverting DONE is not offered by any operation. doneAt is set exactly
// once, atomically with the transition to DONE, and is present if and only
// if the order is DONE.
//
// # Write discipline
//
// Orders are created once by the sender and thereafter mutated only via
// merge-patches that touch status and doneAt. Cart contents, placedAt,
// number, etaMins and serviceType are immutable after send. Concurrent
// patches to the same order resolve last-write-wins at the store; the
// engine performs no conflict detection.
package order
