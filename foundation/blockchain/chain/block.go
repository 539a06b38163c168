// Package chain defines the block, the hash that binds a block to its
// predecessor, the genesis block, and the rules that decide if a block or
// an entire chain is valid.
package chain

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate holds the settings and caches for validating wire blocks.
var validate = validator.New()

// =============================================================================

// Block represents a single link in the chain. A block is never modified
// after construction.
type Block struct {
	Index     uint64  // Position in the chain, genesis is 0.
	Hash      string  // Hash of the other four fields.
	PrevHash  string  // Hash of the previous block, empty for genesis.
	TimeStamp float64 // Seconds since epoch, assigned by the producer.
	Data      string  // Opaque payload.
}

// NewBlock constructs the block that follows the specified previous block.
func NewBlock(prevBlock Block, timeStamp float64, data string) Block {
	index := prevBlock.Index + 1

	return Block{
		Index:     index,
		Hash:      Hash(index, prevBlock.Hash, timeStamp, data),
		PrevHash:  prevBlock.Hash,
		TimeStamp: timeStamp,
		Data:      data,
	}
}

// String implements the fmt.Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.Index, b.Hash)
}

// =============================================================================

// BlockData represents what is serialized over the network. The fields are
// pointers so a missing field can be told apart from a zero value.
type BlockData struct {
	Index     *uint64  `json:"index" validate:"required"`
	Hash      *string  `json:"hash" validate:"required"`
	PrevHash  *string  `json:"previousHash"`
	TimeStamp *float64 `json:"timestamp" validate:"required"`
	Data      *string  `json:"data" validate:"required"`
}

// NewBlockData constructs block data from a block. The genesis sentinel is
// written as a null previous hash.
func NewBlockData(block Block) BlockData {
	bd := BlockData{
		Index:     &block.Index,
		Hash:      &block.Hash,
		TimeStamp: &block.TimeStamp,
		Data:      &block.Data,
	}

	if block.Index != 0 || block.PrevHash != "" {
		bd.PrevHash = &block.PrevHash
	}

	return bd
}

// Validate checks every field of the block data is present. Only the index 0
// block may omit the previous hash.
func (bd BlockData) Validate() error {
	if err := validate.Struct(bd); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStructure, err)
	}

	if bd.PrevHash == nil && *bd.Index != 0 {
		return fmt.Errorf("%w: previous hash missing for block %d", ErrInvalidStructure, *bd.Index)
	}

	return nil
}

// ToBlock converts block data into a block after validating its structure.
func ToBlock(bd BlockData) (Block, error) {
	if err := bd.Validate(); err != nil {
		return Block{}, err
	}

	block := Block{
		Index:     *bd.Index,
		Hash:      *bd.Hash,
		TimeStamp: *bd.TimeStamp,
		Data:      *bd.Data,
	}
	if bd.PrevHash != nil {
		block.PrevHash = *bd.PrevHash
	}

	if err := ValidateBlockStructure(block); err != nil {
		return Block{}, err
	}

	return block, nil
}

// =============================================================================

// EncodeBlocks marshals the blocks into their JSON wire form.
func EncodeBlocks(blocks []Block) ([]byte, error) {
	bds := make([]BlockData, len(blocks))
	for i, block := range blocks {
		bds[i] = NewBlockData(block)
	}

	return json.Marshal(bds)
}

// DecodeBlocks unmarshals the JSON wire form of a sequence of blocks. Any
// block that is missing a field, or has a field of the wrong type, fails the
// whole sequence with ErrInvalidStructure.
func DecodeBlocks(data []byte) ([]Block, error) {
	var bds []BlockData
	if err := json.Unmarshal(data, &bds); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStructure, err)
	}

	blocks := make([]Block, len(bds))
	for i, bd := range bds {
		block, err := ToBlock(bd)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		blocks[i] = block
	}

	return blocks, nil
}
