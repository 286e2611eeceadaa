// Package models defines the identity rows persisted in the database.
//
// A physical card maps to exactly one user; a user owns zero or more cards
// and shares one PIN across all of them. ExtIDs and RefIDs are per-user
// public identifiers at different granularities: the extid spans a game
// series, the refid a (game, version) pair, and the refid is what cabinets
// present after registration in place of the raw card id. A profile hangs
// off a refid and never exists without one.
package models

// User is a logical account, created the first time an unknown card is
// presented together with a PIN.
type User struct {
	UserID int64  `db:"userid"`
	PIN    string `db:"pin"`
}

// Card is a physical card token bound to its owning user.
type Card struct {
	CardID string `db:"cardid"`
	UserID int64  `db:"userid"`
}

// ExtID is the 8-digit public identifier a user holds per game series.
// (game, userid) is unique.
type ExtID struct {
	ExtID  int64  `db:"extid"`
	Game   string `db:"game"`
	UserID int64  `db:"userid"`
}

// RefID is the 16-hex-character session handle a user holds per
// (game, version). (game, version, userid) is unique.
type RefID struct {
	RefID   string `db:"refid"`
	Game    string `db:"game"`
	Version int    `db:"version"`
	UserID  int64  `db:"userid"`
}

// Profile is the opaque per-title save-data record keyed by refid. Its
// presence is what separates a returning player from a new one.
type Profile struct {
	RefID string `db:"refid"`
	Data  []byte `db:"data"`
}
