// Package shm implements the shared-memory channel between a running
// simulation (writer) and snakeview (reader).
//
// Both processes map the same file. The region holds a fixed control block
// followed by the payload; ownership of the payload passes back and forth
// through the turn token:
//
//	writer: wait turn == 0 && msgRead
//	        msgWritten = 0, write payload, iteration++
//	        msgWritten = 1, writeHeartBeat++, turn = 1
//	reader: readHeartBeat++
//	        wait msgWritten && turn != 0
//	        msgRead = 0, copy payload
//	        msgRead = 1, turn = 0
//
// No kernel locking is involved. Control words are accessed atomically and
// waits are bounded by a timeout so a stalled peer surfaces as
// domain.ErrProtocolTimeout instead of a hung poller.
//
// The mutable payload is only reachable through a claim, which is handed
// out after the ownership check succeeds.
package shm
