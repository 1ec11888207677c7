package domain

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	PriceCents  int64   `json:"price_cents"`
	Category    string  `json:"category"`
	Glyph       string  `json:"glyph"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	InStock     bool    `json:"in_stock"`
}
