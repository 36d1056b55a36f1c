package solana

import (
	"fmt"
	"strings"
)

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// Cluster names the network a signature lives on, as used by block explorers.
type Cluster string

const (
	ClusterMainnet Cluster = "mainnet-beta"
	ClusterDevnet  Cluster = "devnet"
	ClusterTestnet Cluster = "testnet"
)

// ClusterFromEndpoint makes a best guess of the cluster an RPC endpoint
// serves. Unknown endpoints are assumed to be mainnet.
func ClusterFromEndpoint(endpoint string) Cluster {
	switch {
	case strings.Contains(endpoint, "devnet"):
		return ClusterDevnet
	case strings.Contains(endpoint, "testnet"):
		return ClusterTestnet
	default:
		return ClusterMainnet
	}
}

// WebsocketEndpoint converts an http(s) RPC endpoint into the matching
// ws(s) subscription endpoint.
func WebsocketEndpoint(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

// ExplorerURL returns a link a human can follow to inspect sig.
func ExplorerURL(sig Signature, cluster Cluster) string {
	url := fmt.Sprintf("https://explorer.solana.com/tx/%s", sig.String())
	if cluster != "" && cluster != ClusterMainnet {
		url += "?cluster=" + string(cluster)
	}
	return url
}
