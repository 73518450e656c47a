package serialize

// Decode-side sanity bounds, checked before any allocation sized from
// untrusted input (spec §4.I: "pre-allocation sizes bounded, recursion
// bounded"). These are independent of, and intentionally looser than, a
// Validator's policy limits (e.g. MaxStackDepth) — they exist purely to
// stop a hostile byte stream from requesting gigabytes of memory before a
// Validator ever gets a chance to reject the decoded state.
const (
	maxBlobLen    = 64 << 20 // longest string/decimal-digit/enum-name payload
	maxArrayLen   = 1 << 20  // longest AnyValue array
	maxFrameCount = 1 << 20  // longest frame chain
	maxArrayDepth = 64       // deepest nested AnyValue array
)
