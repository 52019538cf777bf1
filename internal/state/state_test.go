package state

import "testing"

func TestFoldCasemap(t *testing.T) {
	if RFC1459Fold("Ni{ck}Name^") != "ni[ck]name~" {
		t.Fatalf("fold = %q", RFC1459Fold("Ni{ck}Name^"))
	}
}

func TestClientLifecycle(t *testing.T) {
	g := NewGraph("hub.example.net", "hub server", nil)
	c := &Client{Nick: "Alice", User: "alice", Host: "example.com", Server: g.Self}
	g.AddClient(c)

	found, ok := g.FindClient("ALICE")
	if !ok || found != c {
		t.Fatalf("expected case-insensitive lookup to find client")
	}

	g.RenameClient(c, "Bob")
	if _, ok := g.FindClient("alice"); ok {
		t.Fatalf("old nick should no longer resolve")
	}
	if found, ok := g.FindClient("bob"); !ok || found != c {
		t.Fatalf("renamed client should resolve under new nick")
	}

	g.RemoveClient(c, "quit")
	if _, ok := g.FindClient("bob"); ok {
		t.Fatalf("removed client should not resolve")
	}
	live, hist := g.Chase("bob")
	if live != nil {
		t.Fatalf("expected no live client after removal")
	}
	if hist == nil || hist.Nick != "Bob" {
		t.Fatalf("expected chase to find history entry, got %#v", hist)
	}
}

func TestMembershipInvariant(t *testing.T) {
	g := NewGraph("hub.example.net", "hub", nil)
	c := &Client{Nick: "alice", Server: g.Self}
	g.AddClient(c)
	ch, created := g.GetOrCreateChannel("#test", 1000)
	if !created {
		t.Fatalf("expected channel to be newly created")
	}
	g.Join(c, ch, 0)

	if len(c.Channels) != 1 || len(ch.Members) != 1 {
		t.Fatalf("expected membership on both sides")
	}

	g.Part(c, ch)
	if len(c.Channels) != 0 {
		t.Fatalf("expected client channel list to be empty after part")
	}
	if _, ok := g.FindChannel("#test"); ok {
		t.Fatalf("expected empty channel to be destroyed")
	}
}

func TestServerRemovalCascadesClients(t *testing.T) {
	g := NewGraph("hub.example.net", "hub", nil)
	leaf := &Server{Name: "leaf.example.net", Parent: g.Self}
	g.AddServer(leaf)

	c := &Client{Nick: "remote", Server: leaf}
	g.AddClient(c)

	quit := g.RemoveServer(leaf)
	if len(quit) != 1 || quit[0] != c {
		t.Fatalf("expected squit to report the one client behind it")
	}
	if _, ok := g.FindClient("remote"); ok {
		t.Fatalf("client behind squit server should be gone")
	}
	if _, ok := g.FindServer("leaf.example.net"); ok {
		t.Fatalf("squit server should be gone from index")
	}
}
