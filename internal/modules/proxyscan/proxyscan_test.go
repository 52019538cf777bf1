package proxyscan

import "testing"

func TestContainsStatus200(t *testing.T) {
	cases := map[string]bool{
		"HTTP/1.0 200 Connection established\r\n": true,
		"HTTP/1.1 403 Forbidden\r\n":               false,
		"":                                         false,
	}
	for line, want := range cases {
		if got := containsStatus200(line); got != want {
			t.Errorf("containsStatus200(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestSplitCallback(t *testing.T) {
	ip, port, err := splitCallback("203.0.113.9:6667")
	if err != nil {
		t.Fatalf("splitCallback: %v", err)
	}
	if ip.String() != "203.0.113.9" || port != 6667 {
		t.Fatalf("splitCallback = %v, %d", ip, port)
	}
}

func TestSplitCallbackRejectsHostname(t *testing.T) {
	if _, _, err := splitCallback("irc.example.com:6667"); err == nil {
		t.Fatalf("expected a non-literal host to fail splitCallback")
	}
}

func TestScanHTTPFailsClosedWithoutAProxy(t *testing.T) {
	s := New("127.0.0.1:1")
	// Port 0 dials nothing real and must report no open proxy found
	// rather than panicking or blocking.
	if s.ScanHTTP("127.0.0.1", 0) {
		t.Fatalf("ScanHTTP against a closed port should report no proxy")
	}
}
