package imapmail

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	s := New(Options{Username: "user@example.com", SSL: true})

	if s.opts.Host != DefaultHost {
		t.Errorf("Host: got %q, want %q", s.opts.Host, DefaultHost)
	}
	if s.opts.Port != DefaultPort {
		t.Errorf("Port: got %d, want %d", s.opts.Port, DefaultPort)
	}
	if s.opts.Mailbox != DefaultMailbox {
		t.Errorf("Mailbox: got %q, want %q", s.opts.Mailbox, DefaultMailbox)
	}
	if s.opts.MaxWorkers != defaultWorkers {
		t.Errorf("MaxWorkers: got %d, want %d", s.opts.MaxWorkers, defaultWorkers)
	}
	if s.opts.FetchTimeout != defaultFetchTimeout {
		t.Errorf("FetchTimeout: got %v, want %v", s.opts.FetchTimeout, defaultFetchTimeout)
	}
	if s.opts.MailboxRetries != defaultMailboxRetries {
		t.Errorf("MailboxRetries: got %d, want %d", s.opts.MailboxRetries, defaultMailboxRetries)
	}
}

func TestNewKeepsExplicitOptions(t *testing.T) {
	s := New(Options{
		Host:           "mail.example.com",
		Port:           143,
		Mailbox:        "INBOX",
		MaxWorkers:     4,
		FetchTimeout:   5 * time.Second,
		MailboxRetries: 1,
	})

	if s.opts.Host != "mail.example.com" || s.opts.Port != 143 || s.opts.Mailbox != "INBOX" {
		t.Errorf("connection options overridden: %+v", s.opts)
	}
	if s.opts.MaxWorkers != 4 || s.opts.FetchTimeout != 5*time.Second || s.opts.MailboxRetries != 1 {
		t.Errorf("tuning options overridden: %+v", s.opts)
	}
}

func TestXOAuth2Start(t *testing.T) {
	mech, ir, err := newXOAuth2Client("user@example.com", "token123").Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if mech != "XOAUTH2" {
		t.Errorf("mechanism: got %q, want XOAUTH2", mech)
	}
	want := "user=user@example.com\x01auth=Bearer token123\x01\x01"
	if string(ir) != want {
		t.Errorf("initial response: got %q, want %q", ir, want)
	}
}

func TestXOAuth2NextSurfacesChallenge(t *testing.T) {
	c := newXOAuth2Client("user@example.com", "token123")
	if _, err := c.Next([]byte(`{"status":"400"}`)); err == nil {
		t.Error("expected the error challenge to be surfaced")
	}
}
