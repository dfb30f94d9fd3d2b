package models

// Restaurant is a venue dinner groups are sent to.
type Restaurant struct {
	ID        string
	Name      string
	Address   string
	Cuisine   string
	Active    bool
	CreatedAt int64
}
