package zboot

import (
	"os"
	"strconv"
	"time"
)

// Environment variables consumed and produced around the handoff.
const (
	// EnvMemorySize is the declared memory budget in MiB (consumed).
	EnvMemorySize = "AWS_LAMBDA_FUNCTION_MEMORY_SIZE"

	// EnvStartTime carries the process start timestamp in milliseconds.
	EnvStartTime = "_START_TIME"

	// EnvReserveMemory and EnvLimitAlloc tune the next image's allocator.
	EnvReserveMemory = "MIMALLOC_RESERVE_OS_MEMORY"
	EnvLimitAlloc    = "MIMALLOC_LIMIT_OS_ALLOC"

	// EnvMemFd carries the memory-backed executable's descriptor number.
	EnvMemFd = "LLRT_MEM_FD"

	// EnvBytecodeOffset and EnvBytecodeSize locate the extra segment within
	// the decompressed region, published only when the segment exists.
	EnvBytecodeOffset = "LLRT_BYTECODE_OFFSET"
	EnvBytecodeSize   = "LLRT_BYTECODE_SIZE"
)

// DefaultMemoryMiB is assumed when no budget is declared.
const DefaultMemoryMiB = 128

// MemoryBudgetFromEnv reads the declared memory budget in MiB, falling back
// to DefaultMemoryMiB when the variable is absent or unparsable.
func MemoryBudgetFromEnv() int {
	v := os.Getenv(EnvMemorySize)
	if v == "" {
		return DefaultMemoryMiB
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return DefaultMemoryMiB
	}
	return n
}

// ReserveFraction maps a memory budget to the fraction of it the allocator
// should pre-reserve. A coarse staircase: small budgets leave more headroom
// for the rest of the system, large budgets can commit more up front.
// Comparisons are strictly greater-than, so a budget of exactly 512, 1024
// or 2048 MiB uses the lower tier.
func ReserveFraction(memoryMiB int) float64 {
	switch {
	case memoryMiB > 2048:
		return 0.95
	case memoryMiB > 1024:
		return 0.92
	case memoryMiB > 512:
		return 0.9
	default:
		return 0.8
	}
}

// ReserveMiB is the allocator pre-reservation for a given budget.
func ReserveMiB(memoryMiB int) int {
	return int(float64(memoryMiB) * ReserveFraction(memoryMiB))
}

// EnvConfig holds everything the launcher publishes for the next process
// image, so it can pick up the memory image and extra segment without
// re-parsing any format.
type EnvConfig struct {
	StartTime   time.Time
	MemoryMiB   int
	MemFd       int
	ExtraOffset int
	ExtraSize   int
}

// Publish writes the handoff variables. Values that are already set
// externally are left untouched.
func (c EnvConfig) Publish() {
	setenvDefault(EnvStartTime, strconv.FormatInt(c.StartTime.UnixMilli(), 10))
	setenvDefault(EnvReserveMemory, strconv.Itoa(ReserveMiB(c.MemoryMiB))+"MiB")
	setenvDefault(EnvLimitAlloc, "1")
	setenvDefault(EnvMemFd, strconv.Itoa(c.MemFd))
	if c.ExtraSize > 0 {
		setenvDefault(EnvBytecodeOffset, strconv.Itoa(c.ExtraOffset))
		setenvDefault(EnvBytecodeSize, strconv.Itoa(c.ExtraSize))
	}
}

func setenvDefault(key, value string) {
	if _, ok := os.LookupEnv(key); !ok {
		os.Setenv(key, value)
	}
}
