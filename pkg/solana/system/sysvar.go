package system

import (
	"github.com/humanprotocol/escrow-server/pkg/solana"
)

var (
	// RentSysVar is the address of the rent sysvar account.
	RentSysVar = solana.MustPublicKey("SysvarRent111111111111111111111111111111111")

	// ClockSysVar is the address of the clock sysvar account.
	ClockSysVar = solana.MustPublicKey("SysvarC1ock11111111111111111111111111111111")
)
