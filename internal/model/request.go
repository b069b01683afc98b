package model

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RenderContentRequest struct {
	Content   string `json:"content"`
	// Permalink is the page the content is shown on; forms post back to it.
	Permalink string `json:"permalink,omitempty"`
}

type RenderContentResponse struct {
	HTML string `json:"html"`
}

type LatestEntryResponse struct {
	EntryID int64  `json:"entry_id"`
	FormID  int64  `json:"form_id"`
	Entry   *Entry `json:"entry,omitempty"`
}

type NoteListData struct {
	Items []Note `json:"items"`
}
