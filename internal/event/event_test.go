package event

import "testing"

func TestFireOrderAndRemoval(t *testing.T) {
	e := New("test", 0)

	var order []string
	e.AddHook("a", func(interface{}) interface{} { order = append(order, "a"); return nil })
	e.AddHook("b", func(interface{}) interface{} { order = append(order, "b"); return nil })
	e.AddHook("c", func(interface{}) interface{} { order = append(order, "c"); return nil })

	e.Fire(nil)
	if got := len(order); got != 3 {
		t.Fatalf("expected 3 calls, got %d (%v)", got, order)
	}
	for i, want := range []string{"a", "b", "c"} {
		if order[i] != want {
			t.Fatalf("order[%d] = %s, want %s", i, order[i], want)
		}
	}

	// Removing a hook mid-call only affects that pass; here we remove at
	// rest, so it should be gone on the next fire.
	e.RemoveHook("b")
	order = nil
	e.Fire(nil)
	if len(order) != 2 || order[0] != "a" || order[1] != "c" {
		t.Fatalf("unexpected order after removal: %v", order)
	}

	if got := e.NumHooks(); got != 2 {
		t.Fatalf("NumHooks() = %d, want 2", got)
	}
}

func TestRemovalDuringCallAffectsOnlyThatPass(t *testing.T) {
	e := New("test", 0)

	calls := 0
	e.AddHook("self-remove", func(interface{}) interface{} {
		calls++
		e.RemoveHook("self-remove")
		return nil
	})
	e.AddHook("after", func(interface{}) interface{} {
		calls++
		return nil
	})

	e.Fire(nil)
	if calls != 2 {
		t.Fatalf("expected both hooks to run on the pass that removes one of them, got %d calls", calls)
	}

	calls = 0
	e.Fire(nil)
	if calls != 1 {
		t.Fatalf("expected only the surviving hook to run, got %d calls", calls)
	}
}

func TestAdditionDuringCallIsSkippedUntilNextPass(t *testing.T) {
	e := New("test", 0)

	var secondCalled bool
	e.AddHook("first", func(interface{}) interface{} {
		e.AddHook("second", func(interface{}) interface{} {
			secondCalled = true
			return nil
		})
		return nil
	})

	e.Fire(nil)
	if secondCalled {
		t.Fatalf("hook added during a pass must not run until the next pass")
	}

	e.Fire(nil)
	if !secondCalled {
		t.Fatalf("hook added during a prior pass should run on the next pass")
	}
}

func TestConditionalShortCircuit(t *testing.T) {
	e := New("can_join_channel", FlagConditional)

	var h3Called bool
	e.AddHook("h1", func(interface{}) interface{} { return OK })
	e.AddHook("h2", func(interface{}) interface{} { return NeverOK })
	e.AddHook("h3", func(interface{}) interface{} { h3Called = true; return AlwaysOK })

	v := e.FireConditional(nil)
	if v.Pass {
		t.Fatalf("expected verdict to fail")
	}
	if h3Called {
		t.Fatalf("h3 should not be called after h2's NEVER_OK short-circuit")
	}
}

func TestConditionalAlwaysOkShortCircuits(t *testing.T) {
	e := New("test", FlagConditional)

	var later bool
	e.AddHook("h1", func(interface{}) interface{} { return AlwaysOK })
	e.AddHook("h2", func(interface{}) interface{} { later = true; return NeverOK })

	v := e.FireConditional(nil)
	if !v.Pass {
		t.Fatalf("expected ALWAYS_OK to force a pass verdict")
	}
	if later {
		t.Fatalf("h2 should not run after ALWAYS_OK short-circuit")
	}
}

func TestConditionalSpecificCode(t *testing.T) {
	e := New("test", FlagConditional)
	e.AddHook("h1", func(interface{}) interface{} { return 474 })

	v := e.FireConditional(nil)
	if v.Pass {
		t.Fatalf("expected fail verdict")
	}
	if v.Code != 474 {
		t.Fatalf("Code = %d, want 474", v.Code)
	}
}

func TestHookOnceAutoDefers(t *testing.T) {
	e := New("test", FlagHookOnce)

	calls := 0
	e.AddHook("once", func(interface{}) interface{} { calls++; return nil })

	e.Fire(nil)
	e.Fire(nil)
	if calls != 1 {
		t.Fatalf("expected hook to fire exactly once, got %d", calls)
	}
	if e.NumHooks() != 0 {
		t.Fatalf("expected hook to be gone after its single call")
	}
}

func TestOneShotFiresOnlyOnce(t *testing.T) {
	e := New("test", FlagOneShot)

	calls := 0
	e.AddHook("h", func(interface{}) interface{} { calls++; return nil })

	e.Fire(nil)
	e.Fire(nil)
	e.Fire(nil)
	if calls != 1 {
		t.Fatalf("expected a FlagOneShot event's hooks to run exactly once, got %d", calls)
	}
}

func TestOneShotFiresOnlyOnceConditional(t *testing.T) {
	e := New("test", FlagOneShot|FlagConditional)

	calls := 0
	e.AddHook("h", func(interface{}) interface{} { calls++; return OK })

	e.FireConditional(nil)
	e.FireConditional(nil)
	if calls != 1 {
		t.Fatalf("expected a FlagOneShot conditional event's hooks to run exactly once, got %d", calls)
	}
}
