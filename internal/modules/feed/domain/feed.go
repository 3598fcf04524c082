package domain

// Feed is a content source (an official account) that owns articles.
type Feed struct {
	ID     string `json:"id"`
	MPName string `json:"mp_name"`
}
