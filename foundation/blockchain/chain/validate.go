package chain

import (
	"errors"
	"fmt"
)

// Set of errors returned when a block or chain fails validation. Each one is
// a normal outcome the caller can log and move past.
var (
	ErrInvalidStructure = errors.New("invalid structure")
	ErrInvalidIndex     = errors.New("invalid index")
	ErrInvalidPrevHash  = errors.New("invalid previous-hash link")
	ErrInvalidHash      = errors.New("invalid hash")
	ErrEmptyChain       = errors.New("empty chain")
	ErrGenesisMismatch  = errors.New("genesis block mismatch")
)

// ValidateBlockStructure checks the block is well formed. It does not check
// the hash. Only the genesis position may carry an empty previous hash.
func ValidateBlockStructure(b Block) error {
	if b.PrevHash == "" && b.Index != 0 {
		return fmt.Errorf("%w: previous hash missing for block %d", ErrInvalidStructure, b.Index)
	}

	return nil
}

// ValidateNextBlock checks the candidate block can extend a chain that ends
// with the previous block. The checks run in order and the first failure is
// returned.
func ValidateNextBlock(candidate Block, previous Block) error {
	if err := ValidateBlockStructure(candidate); err != nil {
		return err
	}

	nextIndex := previous.Index + 1
	if candidate.Index != nextIndex {
		return fmt.Errorf("%w: got %d, exp %d", ErrInvalidIndex, candidate.Index, nextIndex)
	}

	if candidate.PrevHash != previous.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidPrevHash, candidate.PrevHash, previous.Hash)
	}

	if hash := HashBlock(candidate); hash != candidate.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrInvalidHash, candidate.Hash, hash)
	}

	return nil
}

// ValidateChain checks the entire chain starts with the genesis block and
// that every block properly extends the one before it.
func ValidateChain(blocks []Block) error {
	if len(blocks) == 0 {
		return ErrEmptyChain
	}

	if blocks[0] != Genesis() {
		return fmt.Errorf("%w: got %s", ErrGenesisMismatch, blocks[0])
	}

	for i := 1; i < len(blocks); i++ {
		if err := ValidateNextBlock(blocks[i], blocks[i-1]); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}

	return nil
}
