package config

import "testing"

type memIncluder map[string]string

func (m memIncluder) ReadFile(path string) (string, error) {
	s, ok := m[path]
	if !ok {
		return "", &os_NotExistError{path}
	}
	return s, nil
}

type os_NotExistError struct{ path string }

func (e *os_NotExistError) Error() string { return "no such file: " + e.path }

func TestParseDataAndList(t *testing.T) {
	src := `
		directory "/var/lib/ircd"; # comment
		maxsockets 1024;
		ssl {
			certificate-file "cert.pem";
			key-file "key.pem";
		};
	`
	root, err := ParseString("test.conf", src, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	dir, ok := FindEntry(root, "directory", 1)
	if !ok || dir != "/var/lib/ircd" {
		t.Fatalf("directory = %q, %v", dir, ok)
	}

	maxsockets, ok := FindEntry(root, "maxsockets", 1)
	if !ok || maxsockets != "1024" {
		t.Fatalf("maxsockets = %q, %v", maxsockets, ok)
	}

	ssl := FindList(root, "ssl", 1)
	if ssl == nil {
		t.Fatalf("expected ssl list")
	}
	cert, ok := FindEntry(ssl, "certificate-file", 1)
	if !ok || cert != "cert.pem" {
		t.Fatalf("certificate-file = %q, %v", cert, ok)
	}

	// Recursive find should also locate it from the root with enough depth.
	if e := Find(root, "certificate-file", "", Data, 3); e == nil {
		t.Fatalf("expected recursive find to succeed")
	}
}

func TestAnonymousEntries(t *testing.T) {
	src := `
		administrators {
			"root@example.com";
			"ops@example.com";
		};
	`
	root, err := ParseString("test.conf", src, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	admins := FindList(root, "administrators", 1)
	if len(admins) != 2 {
		t.Fatalf("expected 2 anonymous entries, got %d", len(admins))
	}
	if admins[0].Name != "" || admins[0].Value != "root@example.com" {
		t.Fatalf("unexpected first entry: %+v", admins[0])
	}
}

func TestEscapes(t *testing.T) {
	src := `msg "line one\nline two\ttabbed \"quoted\"";`
	root, err := ParseString("test.conf", src, nil)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	val, ok := FindEntry(root, "msg", 1)
	if !ok {
		t.Fatalf("expected msg entry")
	}
	want := "line one\nline two\ttabbed \"quoted\""
	if val != want {
		t.Fatalf("val = %q, want %q", val, want)
	}
}

func TestInclude(t *testing.T) {
	inc := memIncluder{
		"main.conf":    `top "yes"; $INCLUDE "other.conf";`,
		"other.conf":   `nested "value";`,
	}
	root, err := Parse("main.conf", inc)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("expected include to inline as 2 top level entries, got %d", len(root))
	}
	if v, _ := FindEntry(root, "nested", 1); v != "value" {
		t.Fatalf("nested = %q", v)
	}
}

func TestPrintParseIdempotent(t *testing.T) {
	src := `
		directory "/var/lib/ircd";
		ssl {
			certificate-file "cert.pem";
			entropy-bits 1024;
		};
	`
	root1, err := ParseString("test.conf", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	printed1 := Print(root1)

	root2, err := ParseString("test.conf", printed1, nil)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	printed2 := Print(root2)

	if printed1 != printed2 {
		t.Fatalf("print(parse(s)) != print(parse(print(parse(s))))\n---1---\n%s\n---2---\n%s", printed1, printed2)
	}
}

func TestCommentStyles(t *testing.T) {
	src := `
		a 1; // line comment
		/* block
		   comment */
		b 2; # hash comment
	`
	root, err := ParseString("t.conf", src, nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(root) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(root))
	}
}
