package model

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta describes list replies. Total counts the listed items only.
type Meta struct {
	Total   int   `json:"total"`
	FormID  int64 `json:"form_id,omitempty"`
	EntryID int64 `json:"entry_id,omitempty"`
}
