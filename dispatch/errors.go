package dispatch

import "errors"

// ErrRecipientUnreachable marks a non-transient delivery failure (the
// recipient blocked the egress channel, deleted their account, etc). The
// processor flips the user's is_active flag to false on this error and back
// to true on the next successful delivery (spec.md §4.3 bullet 5).
var ErrRecipientUnreachable = errors.New("dispatch: recipient unreachable")
