package tunnel

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"guacaman/internal/config"
)

// startEchoServer accepts TCP connections and writes back whatever arrives.
func startEchoServer(t *testing.T) net.Listener {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				_, _ = io.Copy(conn, conn)
			}()
		}
	}()
	return l
}

type tcpipRequest struct {
	DestAddr string
	DestPort uint32
	OrigAddr string
	OrigPort uint32
}

// startSSHServer runs a minimal in-process SSH hop that accepts password
// auth and serves direct-tcpip channels by dialing the requested target.
func startSSHServer(t *testing.T, user, password string) net.Listener {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == user && string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("permission denied")
		},
	}
	cfg.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	go func() {
		for {
			nconn, err := l.Accept()
			if err != nil {
				return
			}
			go serveSSHConn(nconn, cfg)
		}
	}()
	return l
}

func serveSSHConn(nconn net.Conn, cfg *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(nconn, cfg)
	if err != nil {
		return
	}
	defer conn.Close()
	go ssh.DiscardRequests(reqs)

	for newChan := range chans {
		if newChan.ChannelType() != "direct-tcpip" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		var req tcpipRequest
		if err := ssh.Unmarshal(newChan.ExtraData(), &req); err != nil {
			_ = newChan.Reject(ssh.ConnectionFailed, "bad payload")
			continue
		}
		target, err := net.Dial("tcp", net.JoinHostPort(req.DestAddr, strconv.Itoa(int(req.DestPort))))
		if err != nil {
			_ = newChan.Reject(ssh.ConnectionFailed, err.Error())
			continue
		}
		ch, chReqs, err := newChan.Accept()
		if err != nil {
			_ = target.Close()
			continue
		}
		go ssh.DiscardRequests(chReqs)
		go func() {
			defer ch.Close()
			defer target.Close()
			go func() { _, _ = io.Copy(target, ch) }()
			_, _ = io.Copy(ch, target)
		}()
	}
}

func TestTunnelForwardsTraffic(t *testing.T) {
	echo := startEchoServer(t)
	hop := startSSHServer(t, "deploy", "hunter2")

	host, portStr, err := net.SplitHostPort(hop.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	tun, err := Open(context.Background(), config.SSHTunnel{
		Enabled:  true,
		Host:     host,
		Port:     port,
		User:     "deploy",
		Password: "hunter2",
	}, echo.Addr().String())
	require.NoError(t, err)
	defer tun.Close()

	conn, err := net.Dial("tcp", tun.LocalAddr())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
}

func TestTunnelRejectsBadPassword(t *testing.T) {
	hop := startSSHServer(t, "deploy", "hunter2")

	host, portStr, err := net.SplitHostPort(hop.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	_, err = Open(context.Background(), config.SSHTunnel{
		Enabled:  true,
		Host:     host,
		Port:     port,
		User:     "deploy",
		Password: "wrong",
	}, "127.0.0.1:3306")
	require.Error(t, err)
}

func TestAuthMethodsRequireCredential(t *testing.T) {
	_, err := authMethods(config.SSHTunnel{})
	require.Error(t, err)
}
