// Package explorer builds Solana Explorer links for launched tokens.
package explorer

import (
	"net/url"

	"github.com/gagliardetto/solana-go"

	"github.com/ninja0404/token-launch-go/pkg/config"
)

// BaseURL is the public Solana Explorer.
const BaseURL = "https://explorer.solana.com"

// AddressURL links to an account page.
func AddressURL(addr solana.PublicKey, network config.Network) string {
	return link("/address/"+addr.String(), network, "")
}

// TxURL links to a transaction page.
func TxURL(sig solana.Signature, network config.Network) string {
	return link("/tx/"+sig.String(), network, "")
}

// CustomAddressURL links to an account on a custom RPC endpoint.
func CustomAddressURL(addr solana.PublicKey, rpcURL string) string {
	return link("/address/"+addr.String(), config.NetworkCustom, rpcURL)
}

func link(path string, network config.Network, rpcURL string) string {
	q := url.Values{}
	switch network {
	case config.NetworkMainnet, "":
	case config.NetworkDevnet, config.NetworkTestnet:
		q.Set("cluster", string(network))
	case config.NetworkCustom:
		q.Set("cluster", "custom")
		if rpcURL != "" {
			q.Set("customUrl", rpcURL)
		}
	}
	if len(q) == 0 {
		return BaseURL + path
	}
	return BaseURL + path + "?" + q.Encode()
}
