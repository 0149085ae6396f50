package trace

// Registers is the syscall view of one register snapshot. It is captured
// fresh at every stop.
type Registers struct {
	// Nr is the system call number.
	Nr uint64
	// Args are the six argument registers in calling-convention order.
	Args [6]uint64
	// Ret is the return register. It only holds the result at an exit stop.
	Ret uint64
}

// Return interprets Ret as a signed result.
func (r Registers) Return() int64 {
	return int64(r.Ret)
}
