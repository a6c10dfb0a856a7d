package hub

import "errors"

// Error kinds the hub reports back to the offending connection as an
// "error" frame. A rejected event leaves room state unchanged; ErrInternal
// means the handler panicked and the room has been destroyed.
var (
	ErrNotAuthorized   = errors.New("not authorized to perform this action")
	ErrUnknownRoom     = errors.New("room does not exist")
	ErrInvalidState    = errors.New("operation not valid in current room state")
	ErrPayloadTooLarge = errors.New("payload exceeds size limit")
	ErrInternal        = errors.New("internal error")
)
