package gossip

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/naivechain/foundation/blockchain/chain"
)

// ErrMalformed is returned when a message can't be decoded or carries a
// block that fails structural validation.
var ErrMalformed = errors.New("malformed message")

// MessageType identifies the kind of message on the wire.
type MessageType int

// Set of message types understood by the protocol.
const (
	TypeQueryLatest   MessageType = 0
	TypeQueryAll      MessageType = 1
	TypeChainResponse MessageType = 2
)

// String implements the fmt.Stringer interface.
func (mt MessageType) String() string {
	switch mt {
	case TypeQueryLatest:
		return "query_latest"
	case TypeQueryAll:
		return "query_all"
	case TypeChainResponse:
		return "chain_response"
	}
	return fmt.Sprintf("unknown(%d)", int(mt))
}

// =============================================================================

// Message is implemented by every message of the protocol.
type Message interface {
	Type() MessageType
	message()
}

// QueryLatest asks a peer for its latest block.
type QueryLatest struct{}

// QueryAll asks a peer for its entire chain.
type QueryAll struct{}

// ChainResponse carries blocks to a peer. An answer to QueryLatest carries
// exactly one block; an answer to QueryAll carries the entire chain.
type ChainResponse struct {
	Blocks []chain.Block
}

func (QueryLatest) Type() MessageType   { return TypeQueryLatest }
func (QueryAll) Type() MessageType      { return TypeQueryAll }
func (ChainResponse) Type() MessageType { return TypeChainResponse }

func (QueryLatest) message()   {}
func (QueryAll) message()      {}
func (ChainResponse) message() {}

// =============================================================================

// envelope is what is written on the wire. The blocks of a ChainResponse are
// carried as a JSON encoded string in the data field.
type envelope struct {
	Type *MessageType `json:"type"`
	Data *string      `json:"data"`
}

// Encode marshals the message into its wire form.
func Encode(msg Message) ([]byte, error) {
	mt := msg.Type()
	env := envelope{Type: &mt}

	switch m := msg.(type) {
	case ChainResponse:
		data, err := chain.EncodeBlocks(m.Blocks)
		if err != nil {
			return nil, fmt.Errorf("encoding blocks: %w", err)
		}
		s := string(data)
		env.Data = &s

	case QueryLatest, QueryAll:

	default:
		return nil, fmt.Errorf("unknown message %T", msg)
	}

	return json.Marshal(env)
}

// Decode unmarshals a message from its wire form. Every block in a
// ChainResponse must pass structural validation.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}

	if env.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch *env.Type {
	case TypeQueryLatest:
		return QueryLatest{}, nil

	case TypeQueryAll:
		return QueryAll{}, nil

	case TypeChainResponse:
		if env.Data == nil {
			return nil, fmt.Errorf("%w: missing data", ErrMalformed)
		}

		blocks, err := chain.DecodeBlocks([]byte(*env.Data))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		return ChainResponse{Blocks: blocks}, nil
	}

	return nil, fmt.Errorf("%w: unknown type %d", ErrMalformed, *env.Type)
}
