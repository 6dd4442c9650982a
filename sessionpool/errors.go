package sessionpool

import "errors"

// ErrNoSessionAvailable is returned by AcquireTransient when every discovered
// credential is either already checked out or failed to connect.
var ErrNoSessionAvailable = errors.New("sessionpool: no session available")

// ErrNotAuthorized is returned when a credential's session blob connects but
// the messaging platform reports the account is not logged in.
var ErrNotAuthorized = errors.New("sessionpool: credential is not authorized")

// ErrUnknownSession is returned by ReleaseTransient when it is given a nil
// session.
var ErrUnknownSession = errors.New("sessionpool: unknown session")
