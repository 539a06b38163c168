package chain

// The genesis block is the trust anchor of the network. Every node carries
// the same literal value and changing any field partitions the network.
const (
	genesisHash      = "816534932c2b7154836da6afc367695e6337db8a921823784c14378abed4f7d7"
	genesisTimeStamp = 1465154705
	genesisData      = "my genesis block!!"
)

// Genesis returns the first block of every chain.
func Genesis() Block {
	return Block{
		Index:     0,
		Hash:      genesisHash,
		PrevHash:  "",
		TimeStamp: genesisTimeStamp,
		Data:      genesisData,
	}
}
