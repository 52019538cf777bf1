package ident

import "testing"

func TestParseReplyExtractsUserAndOSType(t *testing.T) {
	res, err := parseReply("6667, 54321 : USERID : UNIX : alice\r\n")
	if err != nil {
		t.Fatalf("parseReply: %v", err)
	}
	if res.User != "alice" {
		t.Fatalf("User = %q, want %q", res.User, "alice")
	}
	if res.OSType != "UNIX" {
		t.Fatalf("OSType = %q, want %q", res.OSType, "UNIX")
	}
}

func TestParseReplyRejectsErrorLine(t *testing.T) {
	if _, err := parseReply("6667, 54321 : ERROR : NO-USER\r\n"); err == nil {
		t.Fatalf("expected an error reply to fail parsing")
	}
}

func TestParseReplyRejectsMalformed(t *testing.T) {
	if _, err := parseReply("garbage\r\n"); err == nil {
		t.Fatalf("expected malformed input to fail parsing")
	}
}
