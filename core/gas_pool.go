package core

import (
	"errors"
	"fmt"
)

// ErrGasPoolExhausted is returned when the block gas pool has insufficient gas.
var ErrGasPoolExhausted = errors.New("gas pool exhausted")

// GasPool meters the gas still available to transactions within one block.
// The transaction handler draws the full gas limit up front and credits
// back whatever the transaction returns.
type GasPool uint64

// AddGas credits gas back into the pool.
func (gp *GasPool) AddGas(amount uint64) *GasPool {
	*gp += GasPool(amount)
	return gp
}

// SubGas draws gas from the pool, failing if the pool cannot cover it.
func (gp *GasPool) SubGas(amount uint64) error {
	if uint64(*gp) < amount {
		return ErrGasPoolExhausted
	}
	*gp -= GasPool(amount)
	return nil
}

// Gas reports the gas remaining in the pool.
func (gp *GasPool) Gas() uint64 {
	return uint64(*gp)
}

func (gp *GasPool) String() string {
	return fmt.Sprintf("%d", uint64(*gp))
}
