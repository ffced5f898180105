package config

import (
	"errors"
	"os"
	"strconv"
)

type RPCConfig struct {
	RPCUrl  string
	ChainID uint64

	// MulticallAddress is the deployed multicall aggregator on the chain.
	MulticallAddress string
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.MulticallAddress = os.Getenv("MULTICALL_ADDRESS")
	if raw := os.Getenv("CHAIN_ID"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return errors.New("invalid CHAIN_ID")
		}
		r.ChainID = id
	}
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" || r.ChainID == 0 {
		return errors.New("invalid rpc config")
	}
	return nil
}
