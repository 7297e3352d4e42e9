package domain

import "time"

// Customer represents a customer in the system.
type Customer struct {
	ID        string
	Name      string
	Phone     string
	CreatedAt time.Time
}
