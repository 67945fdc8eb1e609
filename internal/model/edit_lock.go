package model

// EditLock is a time-bounded exclusive claim on one document version. It is a
// lease: no server-side timer is needed, expiry is evaluated lazily against
// the clock whenever the lock is read or written.
type EditLock struct {
	ID            string `json:"id"`
	VersionID     string `json:"version_id"`
	UserID        string `json:"user_id"`
	Token         string `json:"-"`
	SessionID     string `json:"session_id,omitempty"`
	AcquiredAt    int64  `json:"acquired_at"`
	ExpiresAt     int64  `json:"expires_at"`
	LastHeartbeat int64  `json:"last_heartbeat"`
}

func (l *EditLock) IsExpired(now int64) bool {
	return now > l.ExpiresAt
}
