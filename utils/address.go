package utils

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

// NetParams maps the BTC_NETWORK setting to chain parameters.
func NetParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(strings.TrimSpace(network)) {
	case "", "mainnet", "main":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("unknown btc network %q", network)
	}
}

// IsBTC reports whether an asset ticker denotes bitcoin.
func IsBTC(asset string) bool {
	switch strings.ToUpper(strings.TrimSpace(asset)) {
	case "BTC", "XBT":
		return true
	}
	return false
}

// ValidateBTCAddress decodes addr and checks that it belongs to params' network.
func ValidateBTCAddress(addr string, params *chaincfg.Params) error {
	decoded, err := btcutil.DecodeAddress(strings.TrimSpace(addr), params)
	if err != nil {
		return fmt.Errorf("invalid btc address: %w", err)
	}
	if !decoded.IsForNet(params) {
		return fmt.Errorf("btc address %s is not valid for %s", addr, params.Name)
	}
	return nil
}
