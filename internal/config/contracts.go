package config

import (
	"errors"
	"os"
)

// ContractsConfig holds the chain's deployed contract addresses the engine
// targets: the wrapped-native token and the three router variants.
type ContractsConfig struct {
	WrappedNative  string
	CombinedRouter string
	V2Router       string
	V3Router       string
}

func (c *ContractsConfig) Load() error {
	c.WrappedNative = os.Getenv("WRAPPED_NATIVE_ADDRESS")
	c.CombinedRouter = os.Getenv("COMBINED_ROUTER_ADDRESS")
	c.V2Router = os.Getenv("V2_ROUTER_ADDRESS")
	c.V3Router = os.Getenv("V3_ROUTER_ADDRESS")
	return nil
}

func (c *ContractsConfig) Validate() error {
	if c.WrappedNative == "" {
		return errors.New("missing WRAPPED_NATIVE_ADDRESS")
	}
	if c.CombinedRouter == "" && c.V2Router == "" && c.V3Router == "" {
		return errors.New("no router contract configured")
	}
	return nil
}
