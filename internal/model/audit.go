package models

// AuditEvent represents an audit log entry for one accepted trapper request.
type AuditEvent struct {
	// TS is the timestamp of the event in ISO 8601 format
	TS string `json:"ts"`

	// Items is the list of host:key pairs carried by the request
	Items []string `json:"items"`

	// IPAddress is the address of the sender
	IPAddress string `json:"ip_address"`
}
