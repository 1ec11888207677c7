package domain

import "time"

type CartLine struct {
	ProductID      string `json:"product_id" bson:"product_id"`
	Name           string `json:"name" bson:"name"`
	UnitPriceCents int64  `json:"unit_price_cents" bson:"unit_price_cents"`
	Quantity       int    `json:"quantity" bson:"quantity"`
	Description    string `json:"description" bson:"description"`
	Glyph          string `json:"glyph" bson:"glyph"`
}

func (l CartLine) TotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// RemoteCartRecord is the saved cart of one authenticated principal.
// The client only ever reads it once per session and writes whole snapshots.
type RemoteCartRecord struct {
	ID        string     `json:"-" bson:"_id,omitempty"`
	Owner     string     `json:"owner" bson:"owner"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func (r *RemoteCartRecord) IsEmpty() bool {
	return r == nil || len(r.Lines) == 0
}

func ItemCount(lines []CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func SubtotalCents(lines []CartLine) int64 {
	var total int64
	for _, l := range lines {
		total += l.TotalCents()
	}
	return total
}
