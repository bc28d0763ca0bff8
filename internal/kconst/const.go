// Package kconst holds the fixed constants a pandOS boot image is built
// against: pool sizes, timing, and the syscall/service vocabulary.
package kconst

import "time"

const (
	// MaxProc bounds the static PCB pool.
	MaxProc = 20
	// MaxMessages bounds the static message pool.
	MaxMessages = 20
	// UprocMax is the number of distinct user address spaces (and ASIDs).
	UprocMax = 8
	// PoolSize is the swap pool's frame count, 2x the user process cap.
	PoolSize = 2 * UprocMax

	// PageSize is the size of one virtual/physical page and one backing-store block.
	PageSize = 4096
	// UserPageTableSize is the number of entries in a user's private page table.
	UserPageTableSize = 32

	// TimeSlice is the PLT quantum.
	TimeSlice = 5 * time.Millisecond
	// PseudoClockPeriod is the system interval timer period driving CLOCKWAIT wakeups.
	PseudoClockPeriod = 100 * time.Millisecond

	// DevLines is the number of interrupt lines carrying device interrupts.
	DevLines = 5
	// DevPerLine is the number of (sub)devices multiplexed onto one line.
	DevPerLine = 8

	// MinASID and MaxASID bound user-process address-space identifiers.
	MinASID = 1
	MaxASID = UprocMax
)

// Service codes recognized by the SSI (§4.7).
const (
	ServiceCreateProcess = iota + 1
	ServiceTermProcess
	ServiceDoIO
	ServiceGetCPUTime
	ServiceClockWait
	ServiceGetSupportPtr
	ServiceGetProcessID
)

// Syscall numbers, re-exported to user mode as USEND/URECEIVE (§4.9, §6).
const (
	SyscallSend    = -1
	SyscallReceive = -2
)

const (
	USend    = 1
	UReceive = 2
)

// ParentSentinel in a1 denotes the caller's controlling support process,
// translated by the support layer's syscall wrapper (§4.9).
const ParentSentinel = -1

// Sender filter for RECEIVE: match any sender.
const AnySender = 0

// Syscall/service return codes (§4.5, §7).
const (
	OK             = 0
	DestNotExist   = -1
	MsgNoGood      = -2
	ErrPoolFull    = -3
	ErrASIDsFull   = -4
)

// Flash I/O commands (§4.10), mirrored from the backing-store device's
// command register vocabulary.
const (
	FlashRead  = 2
	FlashWrite = 3
)

// Device status codes. A device interrupts when its status transitions
// from Busy to any other code.
const (
	DeviceBusy  = 0
	DeviceReady = 1
	DeviceError = 2
)

// DeviceAck is written to a device's command register to acknowledge
// a completed operation.
const DeviceAck = 1
