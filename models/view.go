package models

// Action is one interactive element attached to a rendered view:
// either an external link (URL set) or a callback button
// (CallbackData set).
type Action struct {
	Label        string `json:"label"`
	URL          string `json:"url,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
}

// RenderedView is the display-ready form of a subscriber's watchlist.
type RenderedView struct {
	Text    string   `json:"text"`
	Actions []Action `json:"actions"`
}
