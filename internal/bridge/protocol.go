// Package bridge lets a phone stream its orientation sensor into a terminal
// session. The phone opens the controller page, enters the pairing code shown
// in the terminal, and sends deviceorientation readings over a websocket.
package bridge

import "encoding/json"

// Message types.
const (
	MsgHello       = "hello"
	MsgOrientation = "orientation"
	MsgPermission  = "permission"
	MsgWelcome     = "welcome"
	MsgError       = "error"
)

// Permission states reported by the phone.
const (
	PermissionGranted     = "granted"
	PermissionDenied      = "denied"
	PermissionUnavailable = "unavailable"
)

// Envelope wraps every message: a type tag and its raw payload.
type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

// Hello pairs the connection with a terminal session.
type Hello struct {
	Code string `json:"code"`
}

// Orientation is one deviceorientation event in degrees. Either angle may
// be null when the platform has no reading.
type Orientation struct {
	Beta  *float64 `json:"beta"`
	Gamma *float64 `json:"gamma"`
}

// Permission reports the outcome of the sensor permission request.
type Permission struct {
	State string `json:"state"`
}

// Welcome confirms pairing.
type Welcome struct {
	Session string `json:"session"`
	Code    string `json:"code"`
}

// Error tells the phone why a message was rejected.
type Error struct {
	Reason string `json:"reason"`
}
