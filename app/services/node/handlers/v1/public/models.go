package public

// newBlock is the payload for mining a block.
type newBlock struct {
	Data *string `json:"data" validate:"required"`
}

// newPeer is the payload for connecting to a peer.
type newPeer struct {
	Peer string `json:"peer" validate:"required,url"`
}

type status struct {
	Status string `json:"status"`
}
