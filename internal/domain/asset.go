package domain

import "time"

// Asset is an on-ledger bond record. Assets are created exclusively by a
// confirmed create-asset transaction; ids are assigned by the ledger and are
// monotonically increasing from 1. The core never mutates an Asset locally.
type Asset struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	ISIN         string    `json:"isin"`
	FaceValue    int64     `json:"face_value"`
	YieldBps     int64     `json:"yield_bps"`
	LastUpdate   time.Time `json:"last_update"`
	ContentHash  string    `json:"content_hash"`
	IPFSRef      string    `json:"ipfs_ref"`
	Active       bool      `json:"active"`
}

// TransferRequest asks for a token transfer to a recipient. It is validated
// locally, submitted once, and discarded.
type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

// RegistryWindow is the bounded, rebuildable view of the most recently minted
// assets, newest first. It is a derived projection; the ledger stays
// authoritative.
type RegistryWindow struct {
	Assets      []Asset   `json:"assets"`
	NextAssetID int64     `json:"next_asset_id"`
	RefreshedAt time.Time `json:"refreshed_at"`
}
