package metadata

import (
	"bytes"
	"context"
	"fmt"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

// IPFSPinner adds and pins content through a Kubo RPC endpoint.
type IPFSPinner struct {
	sh *shell.Shell
}

// NewIPFSPinner connects to the node at addr ("host:port").
func NewIPFSPinner(addr string, timeout time.Duration) *IPFSPinner {
	sh := shell.NewShell(addr)
	if timeout > 0 {
		sh.SetTimeout(timeout)
	}
	return &IPFSPinner{sh: sh}
}

// Pin adds data with pinning enabled. Shell.Add has no context, so the call
// runs in its own goroutine and ctx only bounds how long we wait.
func (p *IPFSPinner) Pin(ctx context.Context, data []byte) (string, error) {
	type result struct {
		cid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		cid, err := p.sh.Add(bytes.NewReader(data), shell.Pin(true))
		done <- result{cid: cid, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("ipfs add: %w", r.err)
		}
		return r.cid, nil
	}
}

// HealthCheck reports whether the node answers.
func (p *IPFSPinner) HealthCheck(context.Context) error {
	if !p.sh.IsUp() {
		return fmt.Errorf("ipfs node unreachable")
	}
	return nil
}
