package models

// CartLine is a single cart entry. Lines are keyed by product id:
// adding an id that is already present merges quantities instead of
// appending a duplicate line.
type CartLine struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
	Quantity int     `json:"quantity"`
	Variant  string  `json:"variant,omitempty"`
}
