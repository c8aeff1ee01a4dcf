package models

import "fmt"

type Car struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	PlateNum     string  `json:"plate_num"`
	Driver       string  `json:"driver"`
	Brand        string  `json:"brand"`
	Model        string  `json:"model"`
	Capacity     int     `json:"capacity"`
	Luggage      int     `json:"luggage"`
	Doors        int     `json:"doors"`
	Transmission string  `json:"transmission"`
	Features     string  `json:"features"`
	Status       string  `json:"status"`
	Price        float64 `json:"price"`
	Description  string  `json:"description"`
}

// Label is the short "type - plate" form used in booking cards.
func (c Car) Label() string {
	return fmt.Sprintf("%s - %s", c.Type, c.PlateNum)
}
