package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// IsUnreachable reports whether err means the network path to the host is
// missing: a failed name lookup, or an unreachable or downed network. A
// refused connection reached the host and is not included.
func IsUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETDOWN)
}

func hostPort(u *url.URL) string {
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func (s *HTTPSession) dialProbe(ctx context.Context, addr string) error {
	d := net.Dialer{Timeout: s.connectivityInterval}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// awaitConnectivity polls the host of u until it is reachable or ctx ends.
// Concurrent waiters on the same host share one probe. When ctx ends first,
// the returned error wraps both dialErr and the context cause.
func (s *HTTPSession) awaitConnectivity(ctx context.Context, u *url.URL, dialErr error) error {
	addr := hostPort(u)
	ticker := s.clock.Ticker(s.connectivityInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for connectivity: %w: %w", dialErr, context.Cause(ctx))
		case <-ticker.C:
		}

		_, err, _ := s.probes.Do(addr, func() (any, error) {
			return nil, s.probe(ctx, addr)
		})
		if err == nil {
			s.logger.Debug("connectivity restored", "addr", addr)
			return nil
		}
		s.logger.Debug("waiting for connectivity", "addr", addr, "err", err)
	}
}
