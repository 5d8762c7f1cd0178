package record

import "errors"

var (
	ErrEmptyDomain         = errors.New("envelope domain must not be empty")
	ErrInvalidEnvelope     = errors.New("invalid envelope")
	ErrInvalidSignature    = errors.New("invalid envelope signature")
	ErrPayloadTypeMismatch = errors.New("unexpected envelope payload type")
	ErrInvalidPeerRecord   = errors.New("invalid peer record")
	ErrSignerMismatch      = errors.New("envelope signer does not own the peer record")
)
