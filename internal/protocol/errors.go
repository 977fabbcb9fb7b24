package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoBadVersion  = "E_PROTO_BAD_VERSION"
	ErrProtoExpectedSub = "E_PROTO_EXPECTED_SUBSCRIBE"

	// Feed state.
	ErrForbidden = "E_FORBIDDEN"
	ErrBusy      = "E_BUSY"
	ErrNoRun     = "E_NO_RUN"
	ErrInternal  = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoBadVersion:  {},
	ErrProtoExpectedSub: {},
	ErrForbidden:        {},
	ErrBusy:             {},
	ErrNoRun:            {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
