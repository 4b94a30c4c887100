package wget

import (
	"github.com/frankli0324/go-wget/internal/transport"
)

// Connection level options: where to connect and how to trust the peer.
var (
	WithProxy                = transport.WithProxy
	WithProxyFromEnvironment = transport.WithProxyFromEnvironment
	WithResolve              = transport.WithResolve
	WithDNSServer            = transport.WithDNSServer

	WithInsecureSkipVerify = transport.WithInsecureSkipVerify
	WithVerifyPeer         = transport.WithVerifyPeer
	WithVerifyHost         = transport.WithVerifyHost
	WithRootCAs            = transport.WithRootCAs
)
