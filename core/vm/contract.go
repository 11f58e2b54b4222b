package vm

import (
	"math/big"

	"github.com/eth2030/eth2030/core/types"
)

// destBitmap marks the code offsets that are valid JUMP targets, one bit
// per code byte. It is built once per contract, on the first JUMP, and
// distinguishes real JUMPDEST opcodes from 0x5b bytes hiding inside PUSH
// immediates.
type destBitmap []byte

func (b destBitmap) has(pos uint64) bool {
	return b[pos/8]&(1<<(pos%8)) != 0
}

func (b destBitmap) set(pos uint64) {
	b[pos/8] |= 1 << (pos % 8)
}

// Contract is the code-and-gas context one frame executes under.
type Contract struct {
	CallerAddress types.Address
	Address       types.Address
	Code          []byte
	CodeHash      types.Hash
	Input         []byte
	Gas           uint64
	Value         *big.Int
	jumpdests     destBitmap // lazily built JUMPDEST analysis

	// EOF fields (EIP-3540, EIP-7480, EIP-7620)
	Data          []byte   // EOF data section (EIP-7480: DATALOAD, DATALOADN, DATASIZE, DATACOPY)
	Subcontainers [][]byte // EOF subcontainers (EIP-7620: EOFCREATE, RETURNCONTRACT)
}

// NewContract creates an execution context with no code attached yet.
func NewContract(caller, addr types.Address, value *big.Int, gas uint64) *Contract {
	return &Contract{
		CallerAddress: caller,
		Address:       addr,
		Value:         value,
		Gas:           gas,
	}
}

// GetOp returns the opcode at offset n; past the end of code it reads as
// the implicit trailing STOP.
func (c *Contract) GetOp(n uint64) OpCode {
	if n < uint64(len(c.Code)) {
		return OpCode(c.Code[n])
	}
	return STOP
}

// UseGas consumes gas from the frame, reporting false when it cannot.
func (c *Contract) UseGas(gas uint64) bool {
	if c.Gas < gas {
		return false
	}
	c.Gas -= gas
	return true
}

// SetCallCode attaches code (and the executing address, for CALL) to the
// context. The analysis bitmap is dropped since it belongs to the old code.
func (c *Contract) SetCallCode(addr *types.Address, hash types.Hash, code []byte) {
	c.Code = code
	c.CodeHash = hash
	c.jumpdests = nil
	if addr != nil {
		c.Address = *addr
	}
}

// validJumpdest reports whether dest is a JUMPDEST opcode reachable as an
// instruction boundary.
func (c *Contract) validJumpdest(dest *big.Int) bool {
	udest := dest.Uint64()
	if dest.BitLen() > 63 || udest >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[udest]) != JUMPDEST {
		return false
	}
	return c.isCode(udest)
}

// isCode reports whether pos is an instruction boundary rather than PUSH
// immediate data, building the bitmap on first use.
func (c *Contract) isCode(pos uint64) bool {
	if c.jumpdests == nil {
		c.jumpdests = analyzeJumpdests(c.Code)
	}
	return c.jumpdests.has(pos)
}

// analyzeJumpdests walks the code once, skipping push immediates, and
// returns the bitmap of valid JUMPDEST offsets.
func analyzeJumpdests(code []byte) destBitmap {
	bits := make(destBitmap, len(code)/8+1)
	for i := uint64(0); i < uint64(len(code)); i++ {
		op := OpCode(code[i])
		if op == JUMPDEST {
			bits.set(i)
		}
		i += uint64(op.PushSize())
	}
	return bits
}
