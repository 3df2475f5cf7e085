// Package profile manages per-user presence profiles.
//
// A profile is created automatically with each user account and tracks the
// user's realtime state: the live connection identifier (active_conn_id)
// and the time of the last handshake (last_active). The session registry
// owns these fields; REST clients can only read them.
package profile
