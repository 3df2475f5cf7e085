// Package realtime tracks live websocket sessions, one per user.
//
// The Registry is the single source of truth for presence: the websocket
// layer registers a transport on handshake and deregisters it on close,
// and the registry mirrors the state into the user's profile
// (active_conn_id, last_active) so REST clients can observe it.
//
// A second handshake for an already-connected user is resolved by policy:
// supersede (default) closes the old connection, reject refuses the new one.
package realtime
