package models

// PutRecordRequest is the body of PUT /api/records.
type PutRecordRequest struct {
	Record RemoteConfigRecord `json:"record"`

	// Hash is the hex HMAC-SHA256 of the JSON-encoded Record, used by the
	// server to verify transport integrity.
	Hash string `json:"hash"`
}

// UserRequest is the body of POST /api/users.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
	Length  int            `json:"length"`
}

// DevicesResponse is returned by GET /api/devices.
type DevicesResponse struct {
	Devices []Device `json:"devices"`
	Length  int      `json:"length"`
}

// VersionResponse is returned by GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Commit  string `json:"commit"`
}
