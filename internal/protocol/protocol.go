// Package protocol holds the wire contract of the goldrush game service:
// request/response shapes for the seven HTTP endpoints and the in-band
// error envelope the service reports inside otherwise well-formed replies.
package protocol

// ExploreRequest probes a rectangular area for buried treasure.
// The miner always probes single cells (sizeX = sizeY = 1).
type ExploreRequest struct {
	PosX  int `json:"posX"`
	PosY  int `json:"posY"`
	SizeX int `json:"sizeX"`
	SizeY int `json:"sizeY"`
}

// ExploreReport is the amount of treasure left in the probed area at the
// time of the probe. Advisory: another actor may deplete it concurrently.
type ExploreReport struct {
	Amount int `json:"amount"`
}

// License is a capability token for a bounded number of digs. Free licenses
// carry the free-tier capacity; paid ones carry more.
type License struct {
	ID         int `json:"id"`
	DigAllowed int `json:"digAllowed"`
	DigUsed    int `json:"digUsed"`
}

// Active reports whether the license still has dig allowance.
func (l License) Active() bool { return l.DigUsed < l.DigAllowed }

// Exhausted reports whether every allowed dig has been charged.
func (l License) Exhausted() bool { return l.DigUsed >= l.DigAllowed }

// DigRequest asks for one extraction step at a cell. Depth starts at 1 and
// only ever increases for a given cell.
type DigRequest struct {
	LicenseID int `json:"licenseID"`
	PosX      int `json:"posX"`
	PosY      int `json:"posY"`
	Depth     int `json:"depth"`
}

// Treasure is an opaque item id returned by a dig, exchanged exactly once.
type Treasure = string

// Coin is an opaque currency unit held in the wallet.
type Coin uint32

// Balance is a point-in-time account snapshot from /balance.
type Balance struct {
	Balance uint64 `json:"balance"`
	Wallet  []Coin `json:"wallet"`
}
