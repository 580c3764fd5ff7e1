package core

// SessionID identifies one client connection (the client token cookie).
type SessionID string
