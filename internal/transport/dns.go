package transport

import (
	"context"
	"net"
)

// we need a dedicated resolver to customize the DNS server used for
// resolving hostnames. the standard library only follows the system
// configuration (e.g. /etc/resolv.conf), leaving the [net.Resolver.Dial]
// hook of a Go resolver as the one way in.
type resolveConfig struct {
	DNSServer   string
	StaticHosts map[string]string // resembles /etc/hosts
}

// this type should not be used outside this file.
// prevents non-custom DNS server contexts to iterate through all keys
type dnsServerCtx struct {
	context.Context
	server string
}

var dnsServerCtxKey = &dnsServerCtx{nil, "dns-server"} // non-nil pointer to any object, definitely unique

func (c dnsServerCtx) Value(key interface{}) interface{} {
	if key == dnsServerCtxKey {
		return c.server
	}
	return c.Context.Value(key)
}

var zeroDialer net.Dialer

var customServerResolver = net.Resolver{
	PreferGo: true,
	Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
		if v, ok := ctx.Value(dnsServerCtxKey).(string); ok && v != "" {
			return zeroDialer.DialContext(ctx, network, v)
		}
		return zeroDialer.DialContext(ctx, network, address)
	},
}

var customDNSDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// dialTCP connects to hostport honouring static hosts and the custom DNS server.
func (c *resolveConfig) dialTCP(ctx context.Context, hostport string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	dialer, dialctx, dst := &zeroDialer, ctx, hostport
	if static, ok := c.StaticHosts[host]; ok {
		if _, _, err := net.SplitHostPort(static); err == nil {
			dst = static
		} else {
			dst = net.JoinHostPort(static, port)
		}
	}
	if c.DNSServer != "" {
		dialctx = dnsServerCtx{ctx, c.DNSServer}
		dialer = &customDNSDialer
	}
	return dialer.DialContext(dialctx, "tcp", dst)
}
