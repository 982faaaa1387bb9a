// Package sftpsink copies delivered videos to a remote host over SFTP.
package sftpsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"relay/internal/config"
	"relay/internal/logging"
)

// Client holds connection settings; each Put opens its own session.
type Client struct {
	addr      string
	remoteDir string
	config    *ssh.ClientConfig
}

// New validates cfg and prepares the SSH client configuration. Host keys are
// checked against KnownHostsFile when set; otherwise any key is accepted and
// a warning is logged once.
func New(cfg config.SFTP, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" || strings.TrimSpace(cfg.User) == "" {
		return nil, errors.New("sftp: host and user required")
	}
	var auths []ssh.AuthMethod
	if keyPath := strings.TrimSpace(cfg.PrivateKeyFile); keyPath != "" {
		pem, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		auths = append(auths, ssh.Password(cfg.Password))
	}
	if len(auths) == 0 {
		return nil, errors.New("sftp: set password or private_key_file")
	}

	hostKeys := ssh.InsecureIgnoreHostKey()
	if kh := strings.TrimSpace(cfg.KnownHostsFile); kh != "" {
		cb, err := knownhosts.New(kh)
		if err != nil {
			return nil, fmt.Errorf("load known_hosts: %w", err)
		}
		hostKeys = cb
	} else if logger != nil {
		logging.WarnWithContext(logger, "sftp host key not verified", "sftp_host_key_unchecked",
			logging.String("host", cfg.Host),
			logging.String(logging.FieldErrorHint, "set sftp.known_hosts_file"),
			logging.String(logging.FieldImpact, "archive uploads trust any server key"),
		)
	}

	port := cfg.Port
	if port <= 0 {
		port = 22
	}
	return &Client{
		addr:      net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		remoteDir: cfg.RemoteDir,
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auths,
			HostKeyCallback: hostKeys,
		},
	}, nil
}

// Addr is the host:port dialled by Put.
func (c *Client) Addr() string { return c.addr }

// RemoteDir returns the configured base directory.
func (c *Client) RemoteDir() string { return c.remoteDir }

// Put uploads localPath to remotePath, creating parent directories. The
// connect timeout bounds the TCP dial and SSH handshake.
func (c *Client) Put(ctx context.Context, connectTimeout time.Duration, remotePath, localPath string) (int64, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return 0, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	cfg := *c.config
	cfg.Timeout = connectTimeout
	dialer := net.Dialer{Timeout: connectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return 0, fmt.Errorf("dial tcp %s: %w", c.addr, err)
	}
	if connectTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(connectTimeout))
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, c.addr, &cfg)
	if err != nil {
		conn.Close()
		return 0, fmt.Errorf("ssh handshake with %s: %w", c.addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	sshClient := ssh.NewClient(clientConn, chans, reqs)
	defer sshClient.Close()

	// Closing the connection unblocks an in-flight copy on cancellation.
	stop := context.AfterFunc(ctx, func() { sshClient.Close() })
	defer stop()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return 0, fmt.Errorf("create sftp client: %w", err)
	}
	defer client.Close()

	dir := path.Dir(remotePath)
	if err := mkdirAll(client, dir); err != nil {
		return 0, fmt.Errorf("ensure remote dir %s: %w", dir, err)
	}
	remote, err := client.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("create remote file %s: %w", remotePath, err)
	}
	written, err := io.Copy(remote, file)
	closeErr := remote.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return written, ctxErr
		}
		return written, fmt.Errorf("copy to remote file %s: %w", remotePath, err)
	}
	return written, nil
}

func mkdirAll(client *sftp.Client, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}
	cur := ""
	if strings.HasPrefix(dir, "/") {
		cur = "/"
	}
	for _, part := range strings.Split(dir, "/") {
		if part == "" {
			continue
		}
		cur = path.Join(cur, part)
		if _, err := client.Stat(cur); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", cur, err)
			}
			if err := client.Mkdir(cur); err != nil {
				return fmt.Errorf("mkdir %s: %w", cur, err)
			}
		}
	}
	return nil
}
