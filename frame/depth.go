package frame

// StackDepth walks head.Caller.Caller... and returns the number of frames
// traversed. It uses Floyd's tortoise-and-hare so a malicious cyclic chain
// terminates instead of looping forever (spec §3, §4.B, property P3): the
// returned depth on a cyclic chain is the count traversed before the cycle
// was detected, and ok is false.
func StackDepth(head *FrameRecord) (depth int, ok bool) {
	if head == nil {
		return 0, true
	}
	slow, fast := head, head
	for {
		// Advance fast by two, slow by one.
		if fast == nil {
			return depth, true
		}
		fast = fast.Caller
		depth++
		if fast == nil {
			return depth, true
		}
		fast = fast.Caller
		depth++
		slow = slow.Caller

		if fast == slow {
			return depth, false
		}
	}
}
