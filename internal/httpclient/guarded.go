// Package httpclient provides the guarded HTTP client rollbook uses to talk
// to the directory service. Requests are restricted to http/https URLs
// without embedded credentials, and redirect chains are capped. Strict mode
// additionally refuses private and loopback addresses, for deployments where
// the directory URL comes from untrusted configuration.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/casteleyn/rollbook/errors"
)

const maxRedirects = 10

// Guarded wraps http.Client with request URL validation.
type Guarded struct {
	*http.Client
	blockPrivateIP bool
}

// New creates a guarded client. Private and loopback addresses are allowed;
// directory services are routinely hosted on a LAN.
func New(timeout time.Duration) *Guarded {
	return newGuarded(timeout, false)
}

// NewStrict creates a guarded client that also refuses private, loopback,
// and link-local addresses, both in the URL and after DNS resolution.
func NewStrict(timeout time.Duration) *Guarded {
	return newGuarded(timeout, true)
}

func newGuarded(timeout time.Duration, blockPrivateIP bool) *Guarded {
	c := &Guarded{
		Client:         &http.Client{Timeout: timeout},
		blockPrivateIP: blockPrivateIP,
	}

	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.Newf("stopped after %d redirects", maxRedirects)
		}
		if err := c.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if blockPrivateIP {
		// Validate resolved addresses too, so a DNS name cannot smuggle a
		// request to a private host.
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		c.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if isPrivateIP(ip) {
						return nil, errors.Newf("private IP address blocked: %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
	}

	return c
}

// Do validates the request URL, then delegates to the embedded client.
func (c *Guarded) Do(req *http.Request) (*http.Response, error) {
	if err := c.validateURL(req.URL); err != nil {
		return nil, err
	}
	return c.Client.Do(req)
}

func (c *Guarded) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return errors.Newf("scheme %q not allowed", scheme)
	}

	if u.User != nil {
		return errors.New("URL contains embedded credentials")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if c.blockPrivateIP {
		if isLocalhost(hostname) {
			return errors.New("localhost access blocked")
		}
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return errors.Newf("private IP address blocked: %s", hostname)
		}
	}

	return nil
}

// isPrivateIP reports whether ip is in a private or special-use range.
func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4.IsLoopback() ||
			ip4.IsPrivate() ||
			ip4.IsLinkLocalUnicast() ||
			ip4.IsMulticast() ||
			ip4.IsUnspecified() ||
			ip4[0] == 0 || // 0.0.0.0/8
			ip4[0] >= 240 // 240.0.0.0/4 reserved
	}

	if len(ip) == net.IPv6len {
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
			return true
		}
		// Unique local fc00::/7
		if ip[0]&0xfe == 0xfc {
			return true
		}
		// Deprecated site-local fec0::/10
		if ip[0] == 0xfe && ip[1]&0xc0 == 0xc0 {
			return true
		}
		// Documentation prefix 2001:db8::/32
		if ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8 {
			return true
		}
	}

	return false
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
