package sftpsink

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"relay/internal/config"
	"relay/internal/logging"
)

type testServer struct {
	port   int
	hostPK ssh.PublicKey
}

func startServer(t *testing.T, password string) testServer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatal(err)
	}
	cfg := &ssh.ServerConfig{
		PasswordCallback: func(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if meta.User() == "relay" && string(pass) == password {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp listen not permitted: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveConn(conn, cfg)
		}
	}()
	return testServer{port: ln.Addr().(*net.TCPAddr).Port, hostPK: signer.PublicKey()}
}

func serveConn(conn net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for newChan := range chans {
		if newChan.ChannelType() != "session" {
			_ = newChan.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := newChan.Accept()
		if err != nil {
			continue
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				_ = req.Reply(ok, nil)
			}
		}(requests)
		go func() {
			server, err := sftp.NewServer(ch)
			if err != nil {
				ch.Close()
				return
			}
			_ = server.Serve()
			server.Close()
		}()
	}
}

func writeLocal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("sftp-payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPutCreatesDirectories(t *testing.T) {
	srv := startServer(t, "pw")
	client, err := New(config.SFTP{Host: "127.0.0.1", Port: srv.port, User: "relay", Password: "pw"}, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	remote := filepath.ToSlash(filepath.Join(t.TempDir(), "archive", "2026-03-04", "clip-1.mp4"))

	n, err := client.Put(context.Background(), 5*time.Second, remote, writeLocal(t))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("sftp-payload")) {
		t.Fatalf("unexpected byte count %d", n)
	}
	data, err := os.ReadFile(remote)
	if err != nil || string(data) != "sftp-payload" {
		t.Fatalf("remote content %q err %v", data, err)
	}
}

func TestPutWrongPassword(t *testing.T) {
	srv := startServer(t, "pw")
	client, err := New(config.SFTP{Host: "127.0.0.1", Port: srv.port, User: "relay", Password: "nope"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Put(context.Background(), 5*time.Second, "/tmp/x.mp4", writeLocal(t)); err == nil {
		t.Fatal("expected auth failure")
	}
}

func TestKnownHosts(t *testing.T) {
	srv := startServer(t, "pw")
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(srv.port))

	good := filepath.Join(t.TempDir(), "known_hosts")
	if err := os.WriteFile(good, []byte(knownhosts.Line([]string{knownhosts.Normalize(addr)}, srv.hostPK)+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	client, err := New(config.SFTP{Host: "127.0.0.1", Port: srv.port, User: "relay", Password: "pw", KnownHostsFile: good}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	remote := filepath.ToSlash(filepath.Join(t.TempDir(), "ok.mp4"))
	if _, err := client.Put(context.Background(), 5*time.Second, remote, writeLocal(t)); err != nil {
		t.Fatalf("Put with matching host key: %v", err)
	}

	_, otherPriv, _ := ed25519.GenerateKey(rand.Reader)
	otherSigner, _ := ssh.NewSignerFromKey(otherPriv)
	bad := filepath.Join(t.TempDir(), "known_hosts_bad")
	if err := os.WriteFile(bad, []byte(knownhosts.Line([]string{knownhosts.Normalize(addr)}, otherSigner.PublicKey())+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	client, err = New(config.SFTP{Host: "127.0.0.1", Port: srv.port, User: "relay", Password: "pw", KnownHostsFile: bad}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Put(context.Background(), 5*time.Second, remote, writeLocal(t)); err == nil {
		t.Fatal("expected host key mismatch")
	}
}

func TestNewValidation(t *testing.T) {
	tests := []config.SFTP{
		{},
		{Host: "h"},
		{Host: "h", User: "u"},
		{Host: "h", User: "u", PrivateKeyFile: "/does/not/exist"},
	}
	for i, cfg := range tests {
		if _, err := New(cfg, nil); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
