package newsapi

// StatusOK is the envelope status of a successful response.
const StatusOK = "ok"

// Envelope is the top-level response body.
type Envelope struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults,omitempty"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// OK reports whether the envelope carries meaningful articles.
func (e *Envelope) OK() bool {
	return e != nil && e.Status == StatusOK
}

// Article is a raw article record as sent by the provider.
type Article struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`
}
