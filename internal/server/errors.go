package server

import "github.com/pkg/errors"

var (
	// ErrServerAlreadyRunning is returned when Start is called twice.
	ErrServerAlreadyRunning = errors.New("server is already running")
	// ErrServerNotRunning is returned when Stop is called before Start.
	ErrServerNotRunning = errors.New("server is not running")
	// ErrServerClosed is returned for operations on a closed server.
	ErrServerClosed = errors.New("server is closed")

	// ErrIllegalState marks a lifecycle call the session cannot accept, such
	// as starting a match twice. These are caller bugs, not client input.
	ErrIllegalState = errors.New("illegal session state")
	// ErrInvalidState rejects a client request that arrived after the match
	// left the state the request assumes.
	ErrInvalidState = errors.New("request not valid in current match state")

	// ErrUnknownMatch rejects a request referencing a match id the router
	// does not know.
	ErrUnknownMatch = errors.New("unknown match")
	// ErrUnknownUser rejects a request referencing a user id that is not
	// connected.
	ErrUnknownUser = errors.New("unknown user")
	// ErrNotInMatch rejects a request from a client that is not seated in
	// the match it addresses.
	ErrNotInMatch = errors.New("client is not a player of this match")
	// ErrNotLoggedIn rejects every request a client sends before Login.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrInvalidAction rejects a use or target request that does not resolve
	// to an offered action.
	ErrInvalidAction = errors.New("invalid action")
	// ErrOpponentUnavailable rejects a direct start request whose opponent
	// cannot be seated.
	ErrOpponentUnavailable = errors.New("opponent is not available")

	// ErrClientOffline is returned by Send after a client disconnected.
	ErrClientOffline = errors.New("client is offline")
	// ErrSendQueueFull marks a client whose outbound queue overflowed. The
	// client is disconnected rather than allowed to stall a match.
	ErrSendQueueFull = errors.New("client send queue is full")
)
