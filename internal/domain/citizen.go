package domain

import "encoding/json"

// Citizen is a game character read from the game database, addressable in
// this application by NumericID.
//
// NumericID is not stored anywhere: it is derived from Identifier on every
// read. The JSON blobs (inventory, position, metadata, accounts, skin) are
// passed through verbatim and never parsed here.
type Citizen struct {
	NumericID   int64           `json:"id"`
	Identifier  string          `json:"identifier"`
	Firstname   *string         `json:"firstname"`
	Lastname    *string         `json:"lastname"`
	DateOfBirth *string         `json:"dateofbirth"`
	Sex         *string         `json:"sex"`
	Nationality *string         `json:"nationality"`
	Phone       *string         `json:"phone"`
	Height      *int            `json:"height"`
	Inventory   json.RawMessage `json:"inventory,omitempty"`
	Position    json.RawMessage `json:"position,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Accounts    json.RawMessage `json:"accounts,omitempty"`
	Skin        json.RawMessage `json:"skin,omitempty"`
}

// FullName joins first and last name, skipping missing parts.
func (c *Citizen) FullName() string {
	if c == nil {
		return ""
	}
	var first, last string
	if c.Firstname != nil {
		first = *c.Firstname
	}
	if c.Lastname != nil {
		last = *c.Lastname
	}
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
