package errs

// Code identifies the kind of failure so callers can surface a specific
// user-visible message for every rejection path.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeDuplicateRequest Code = "DUPLICATE_REQUEST"
	CodeRequesterBusy    Code = "REQUESTER_BUSY"
	CodeAccepterBusy     Code = "ACCEPTER_BUSY"
	CodeSelfAccept       Code = "SELF_ACCEPT"
	CodeStaleRequest     Code = "STALE_REQUEST"
	CodeNotInChat        Code = "NOT_IN_CHAT"
	CodeUnreachable      Code = "UNREACHABLE"
	CodeInternal         Code = "INTERNAL"
)
