package tools

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestSandboxPathAllowAll(t *testing.T) {
	p := DefaultSandboxPolicy()
	if err := p.CheckPath("/anywhere/at/all"); err != nil {
		t.Fatalf("empty allow list should allow: %v", err)
	}
}

func TestSandboxDenyDominatesAllow(t *testing.T) {
	p := DefaultSandboxPolicy()
	p.AllowedPaths = []string{"/data"}
	p.BlockedPaths = []string{"/data/secrets"}

	if err := p.CheckPath("/data/public/file.txt"); err != nil {
		t.Fatalf("allowed path rejected: %v", err)
	}
	if err := p.CheckPath("/data/secrets/key.pem"); err == nil {
		t.Fatal("blocked path accepted")
	}
	if err := p.CheckPath("/elsewhere/file.txt"); err == nil {
		t.Fatal("path outside allow list accepted")
	}
}

func TestSandboxPathTraversal(t *testing.T) {
	p := DefaultSandboxPolicy()
	p.AllowedPaths = []string{"/data"}

	escaped := filepath.Join("/data", "..", "etc", "passwd")
	if err := p.CheckPath(escaped); err == nil {
		t.Fatal("traversal escaped the allow list")
	}
}

func TestSandboxShellAndNetworkGates(t *testing.T) {
	p := DefaultSandboxPolicy()
	if err := p.CheckNetwork(); err != nil {
		t.Fatalf("network should default to allowed: %v", err)
	}
	if err := p.CheckShell(); err == nil {
		t.Fatal("shell should default to denied")
	}

	p.AllowShell = true
	p.AllowNetwork = false
	if err := p.CheckShell(); err != nil {
		t.Fatalf("shell should be allowed: %v", err)
	}
	if err := p.CheckNetwork(); err == nil {
		t.Fatal("network should be denied")
	}
}

func TestSandboxHostRules(t *testing.T) {
	p := DefaultSandboxPolicy()
	if err := p.CheckHost("example.com"); err != nil {
		t.Fatalf("empty host lists should allow: %v", err)
	}

	p.BlockedHosts = []string{"evil.example.com"}
	if err := p.CheckHost("evil.example.com"); err == nil {
		t.Fatal("blocked host accepted")
	}
	// Case-insensitive.
	if err := p.CheckHost("EVIL.example.COM"); err == nil {
		t.Fatal("blocked host accepted via case change")
	}
	if err := p.CheckHost("other.example.com"); err != nil {
		t.Fatalf("unblocked host rejected: %v", err)
	}

	// Deny dominates allow.
	p.AllowedHosts = []string{"api.example.com", "evil.example.com"}
	if err := p.CheckHost("evil.example.com"); err == nil {
		t.Fatal("blocked host accepted despite allow list")
	}
	if err := p.CheckHost("api.example.com"); err != nil {
		t.Fatalf("allowed host rejected: %v", err)
	}
	if err := p.CheckHost("other.example.com"); err == nil {
		t.Fatal("host outside allow list accepted")
	}

	// AllowNetwork false denies every host.
	p.AllowNetwork = false
	if err := p.CheckHost("api.example.com"); err == nil {
		t.Fatal("network disabled but host accepted")
	}
}

func TestSandboxTruncate(t *testing.T) {
	p := DefaultSandboxPolicy()
	p.MaxOutputSize = 8

	got := p.Truncate("0123456789abcdef")
	if !strings.HasPrefix(got, "01234567") || !strings.Contains(got, "truncated") {
		t.Fatalf("truncated = %q", got)
	}
	if p.Truncate("short") != "short" {
		t.Fatal("short output should pass through")
	}
}
