package core

import "math/big"

// ChainConfig holds chain-level configuration for fork scheduling.
// Early forks activate by block number; Shanghai onward activate by
// timestamp, matching mainnet's switch to timestamp-scheduled upgrades
// after the Merge.
type ChainConfig struct {
	ChainID *big.Int

	HomesteadBlock      *big.Int
	EIP150Block         *big.Int
	EIP155Block         *big.Int
	EIP158Block         *big.Int
	ByzantiumBlock      *big.Int
	ConstantinopleBlock *big.Int
	PetersburgBlock     *big.Int
	IstanbulBlock       *big.Int
	BerlinBlock         *big.Int
	LondonBlock         *big.Int

	// TerminalTotalDifficulty being non-nil marks the chain as having
	// passed the Merge (Paris); block-based difficulty forks stop
	// mattering from that point on.
	TerminalTotalDifficulty *big.Int

	ShanghaiTime    *uint64
	CancunTime      *uint64
	PragueTime      *uint64
	OsakaTime       *uint64
	AmsterdamTime   *uint64
	GlamsterdanTime *uint64
}

func isBlockForked(forkBlock, block *big.Int) bool {
	if forkBlock == nil || block == nil {
		return false
	}
	return forkBlock.Cmp(block) <= 0
}

func isTimestampForked(forkTime *uint64, blockTime uint64) bool {
	if forkTime == nil {
		return false
	}
	return *forkTime <= blockTime
}

// IsHomestead returns whether the given block number is at or past Homestead.
func (c *ChainConfig) IsHomestead(num *big.Int) bool {
	return isBlockForked(c.HomesteadBlock, num)
}

// IsEIP150 returns whether the given block number is at or past the EIP-150
// (Tangerine Whistle) gas repricing.
func (c *ChainConfig) IsEIP150(num *big.Int) bool {
	return isBlockForked(c.EIP150Block, num)
}

// IsEIP155 returns whether the given block number is at or past EIP-155
// (replay protection).
func (c *ChainConfig) IsEIP155(num *big.Int) bool {
	return isBlockForked(c.EIP155Block, num)
}

// IsEIP158 returns whether the given block number is at or past EIP-158
// (empty account cleanup).
func (c *ChainConfig) IsEIP158(num *big.Int) bool {
	return isBlockForked(c.EIP158Block, num)
}

// IsByzantium returns whether the given block number is at or past Byzantium.
func (c *ChainConfig) IsByzantium(num *big.Int) bool {
	return isBlockForked(c.ByzantiumBlock, num)
}

// IsConstantinople returns whether the given block number is at or past
// Constantinople.
func (c *ChainConfig) IsConstantinople(num *big.Int) bool {
	return isBlockForked(c.ConstantinopleBlock, num)
}

// IsPetersburg returns whether the given block number is at or past
// Petersburg.
func (c *ChainConfig) IsPetersburg(num *big.Int) bool {
	return isBlockForked(c.PetersburgBlock, num)
}

// IsIstanbul returns whether the given block number is at or past Istanbul.
func (c *ChainConfig) IsIstanbul(num *big.Int) bool {
	return isBlockForked(c.IstanbulBlock, num)
}

// IsBerlin returns whether the given block number is at or past Berlin.
func (c *ChainConfig) IsBerlin(num *big.Int) bool {
	return isBlockForked(c.BerlinBlock, num)
}

// IsLondon returns whether the given block number is at or past London.
func (c *ChainConfig) IsLondon(num *big.Int) bool {
	return isBlockForked(c.LondonBlock, num)
}

// IsMerge returns whether the chain has passed the Merge (Paris), i.e. a
// terminal total difficulty has been configured.
func (c *ChainConfig) IsMerge() bool {
	return c.TerminalTotalDifficulty != nil
}

// IsShanghai returns whether the given block time is at or past the Shanghai fork.
func (c *ChainConfig) IsShanghai(time uint64) bool {
	return isTimestampForked(c.ShanghaiTime, time)
}

// IsCancun returns whether the given block time is at or past the Cancun fork.
func (c *ChainConfig) IsCancun(time uint64) bool {
	return isTimestampForked(c.CancunTime, time)
}

// IsPrague returns whether the given block time is at or past the Prague fork.
func (c *ChainConfig) IsPrague(time uint64) bool {
	return isTimestampForked(c.PragueTime, time)
}

// IsOsaka returns whether the given block time is at or past the Osaka fork
// (EIP-7212/RIP-7212 P256VERIFY, EIP-7883 ModExp repricing).
func (c *ChainConfig) IsOsaka(time uint64) bool {
	return isTimestampForked(c.OsakaTime, time)
}

// IsAmsterdam returns whether the given block time is at or past the Amsterdam fork.
func (c *ChainConfig) IsAmsterdam(time uint64) bool {
	return isTimestampForked(c.AmsterdamTime, time)
}

// IsGlamsterdan returns whether the given block time is at or past the
// speculative Glamsterdan fork (EIP-7904 and friends).
func (c *ChainConfig) IsGlamsterdan(time uint64) bool {
	return isTimestampForked(c.GlamsterdanTime, time)
}

// Rules captures the fully resolved set of fork-activation flags for a
// specific (block number, merge status, timestamp) triple. Unlike
// ChainConfig, which describes activation schedules, Rules describes
// which rules apply right now — this is what the interpreter and gas
// schedule actually consult.
type Rules struct {
	ChainID *big.Int

	IsHomestead      bool
	IsEIP150         bool
	IsEIP155         bool
	IsEIP158         bool
	IsByzantium      bool
	IsConstantinople bool
	IsPetersburg     bool
	IsIstanbul       bool
	IsBerlin         bool
	IsLondon         bool
	IsMerge          bool
	IsShanghai       bool
	IsCancun         bool
	IsPrague         bool
	IsOsaka          bool
	IsAmsterdam      bool
	IsGlamsterdan    bool

	// Glamsterdan-bundled EIPs. These activate together with
	// IsGlamsterdan in this configuration; they are broken out as
	// separate flags because each gates a distinct subsystem (gas
	// repricing, multidimensional gas, log emission on transfer,
	// contract size, transaction base cost).
	IsEIP7904 bool // gas repricing (arithmetic + precompiles)
	IsEIP7706 bool // multidimensional gas pricing
	IsEIP7778 bool // block gas accounting on pre-refund gas
	IsEIP7708 bool // ETH transfers emit a Transfer log
	IsEIP7954 bool // increased max contract code size
	IsEIP2780 bool // reduced transaction base gas cost
}

// Rules resolves the full set of fork flags active at the given block
// number, merge status, and timestamp. Callers determine isMerge
// externally (typically via IsMerge) since merge status is a one-way
// transition not purely derived from the TerminalTotalDifficulty check
// in every caller context (e.g. replaying pre-merge history on a chain
// that has since merged).
func (c *ChainConfig) Rules(num *big.Int, isMerge bool, time uint64) Rules {
	chainID := c.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	glamsterdan := c.IsGlamsterdan(time)
	osaka := c.IsOsaka(time) || glamsterdan
	return Rules{
		ChainID: chainID,

		IsHomestead:      c.IsHomestead(num),
		IsEIP150:         c.IsEIP150(num),
		IsEIP155:         c.IsEIP155(num),
		IsEIP158:         c.IsEIP158(num),
		IsByzantium:      c.IsByzantium(num),
		IsConstantinople: c.IsConstantinople(num),
		IsPetersburg:     c.IsPetersburg(num),
		IsIstanbul:       c.IsIstanbul(num),
		IsBerlin:         c.IsBerlin(num),
		IsLondon:         c.IsLondon(num),
		IsMerge:          isMerge,
		IsShanghai:       isMerge && c.IsShanghai(time),
		IsCancun:         isMerge && c.IsCancun(time),
		IsPrague:         isMerge && c.IsPrague(time),
		IsOsaka:          isMerge && osaka,
		IsAmsterdam:      isMerge && c.IsAmsterdam(time),
		IsGlamsterdan:    isMerge && glamsterdan,

		IsEIP7904: glamsterdan,
		IsEIP7706: glamsterdan,
		IsEIP7778: glamsterdan,
		IsEIP7708: glamsterdan,
		IsEIP7954: glamsterdan,
		IsEIP2780: glamsterdan,
	}
}

func newUint64(v uint64) *uint64 { return &v }

// MainnetConfig is the chain config for Ethereum mainnet.
var MainnetConfig = &ChainConfig{
	ChainID:                 big.NewInt(1),
	HomesteadBlock:          big.NewInt(1150000),
	EIP150Block:             big.NewInt(2463000),
	EIP155Block:             big.NewInt(2675000),
	EIP158Block:             big.NewInt(2675000),
	ByzantiumBlock:          big.NewInt(4370000),
	ConstantinopleBlock:     big.NewInt(7280000),
	PetersburgBlock:         big.NewInt(7280000),
	IstanbulBlock:           big.NewInt(9069000),
	BerlinBlock:             big.NewInt(12244000),
	LondonBlock:             big.NewInt(12965000),
	TerminalTotalDifficulty: big.NewInt(58750000000000000),
	ShanghaiTime:            newUint64(1681338455),
	CancunTime:              newUint64(1710338135),
	PragueTime:              nil, // not yet scheduled
	OsakaTime:               nil, // not yet scheduled
	AmsterdamTime:           nil, // not yet scheduled
	GlamsterdanTime:         nil, // not yet scheduled
}

// TestConfig is a chain config with all forks through Amsterdam active at
// genesis (time/block 0), but without the speculative Glamsterdan fork.
var TestConfig = &ChainConfig{
	ChainID:                 big.NewInt(1337),
	HomesteadBlock:          big.NewInt(0),
	EIP150Block:             big.NewInt(0),
	EIP155Block:             big.NewInt(0),
	EIP158Block:             big.NewInt(0),
	ByzantiumBlock:          big.NewInt(0),
	ConstantinopleBlock:     big.NewInt(0),
	PetersburgBlock:         big.NewInt(0),
	IstanbulBlock:           big.NewInt(0),
	BerlinBlock:             big.NewInt(0),
	LondonBlock:             big.NewInt(0),
	TerminalTotalDifficulty: big.NewInt(0),
	ShanghaiTime:            newUint64(0),
	CancunTime:              newUint64(0),
	PragueTime:              newUint64(0),
	OsakaTime:               newUint64(0),
	AmsterdamTime:           newUint64(0),
	GlamsterdanTime:         nil,
}

// TestConfigGlamsterdan is TestConfig with the speculative Glamsterdan fork
// (and its bundled EIPs) also active at genesis. Used by tests that need to
// exercise Glamsterdan-only behavior (e.g. EIP-2780's reduced intrinsic gas
// floor, the repriced precompile gas table).
var TestConfigGlamsterdan = &ChainConfig{
	ChainID:                 big.NewInt(1337),
	HomesteadBlock:          big.NewInt(0),
	EIP150Block:             big.NewInt(0),
	EIP155Block:             big.NewInt(0),
	EIP158Block:             big.NewInt(0),
	ByzantiumBlock:          big.NewInt(0),
	ConstantinopleBlock:     big.NewInt(0),
	PetersburgBlock:         big.NewInt(0),
	IstanbulBlock:           big.NewInt(0),
	BerlinBlock:             big.NewInt(0),
	LondonBlock:             big.NewInt(0),
	TerminalTotalDifficulty: big.NewInt(0),
	ShanghaiTime:            newUint64(0),
	CancunTime:              newUint64(0),
	PragueTime:              newUint64(0),
	OsakaTime:               newUint64(0),
	AmsterdamTime:           newUint64(0),
	GlamsterdanTime:         newUint64(0),
}
