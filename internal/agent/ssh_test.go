package agent

import (
	"testing"

	"github.com/danmuck/ghostconnect/internal/testutil/testlog"
)

func TestSSHRunnerAddress(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		name   string
		runner SSHRunner
		want   string
		fails  bool
	}{
		{"default port", SSHRunner{Host: "gw.example.net"}, "gw.example.net:22", false},
		{"explicit port field", SSHRunner{Host: "gw.example.net", Port: "2222"}, "gw.example.net:2222", false},
		{"host carries port", SSHRunner{Host: "gw.example.net:2200"}, "gw.example.net:2200", false},
		{"port field wins over host port", SSHRunner{Host: "gw.example.net", Port: "22"}, "gw.example.net:22", false},
		{"trims whitespace", SSHRunner{Host: "  gw.example.net  "}, "gw.example.net:22", false},
		{"empty host", SSHRunner{}, "", true},
	}
	for _, tc := range cases {
		addr, err := tc.runner.address()
		if tc.fails {
			if err == nil {
				t.Fatalf("%s: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: address: %v", tc.name, err)
		}
		if addr != tc.want {
			t.Fatalf("%s: unexpected address: %q", tc.name, addr)
		}
	}
}

func TestSSHRunnerClientConfigRequiresIdentity(t *testing.T) {
	testlog.Start(t)

	if _, err := (SSHRunner{Host: "gw.example.net"}).clientConfig(); err == nil {
		t.Fatalf("expected error without user")
	}
	if _, err := (SSHRunner{Host: "gw.example.net", User: "ghost"}).clientConfig(); err == nil {
		t.Fatalf("expected error without key path")
	}
}

func TestShellEscape(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"connect", "'connect'"},
		{"two words", "'two words'"},
		{"it's", `'it'"'"'s'`},
	}
	for _, tc := range cases {
		if got := shellEscape(tc.in); got != tc.want {
			t.Fatalf("escape %q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestJoinCommand(t *testing.T) {
	testlog.Start(t)

	if got := joinCommand("/opt/ghost/agent", nil); got != "'/opt/ghost/agent'" {
		t.Fatalf("unexpected command: %q", got)
	}
	got := joinCommand("/opt/ghost/agent", []string{"--profile", "ghost", DirectiveStop})
	if got != "'/opt/ghost/agent' '--profile' 'ghost' 'stop'" {
		t.Fatalf("unexpected command: %q", got)
	}
}
