package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unknown flags are off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,junk=abc%")

	if !m.Enabled("always", 1) || !m.On("always") {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) || m.Enabled("junk", 1) {
		t.Fatal("0% and malformed rollouts should be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per profile")
		}
	}

	if m.On("canary") {
		t.Fatal("partial rollout is off for process-wide checks")
	}
}

func TestDefaultsAndOverrides(t *testing.T) {
	m := NewManager("")
	if !m.On(AnalyticsFallback) || !m.On(TypingIndicators) || !m.On(MessageImages) {
		t.Fatal("built-in flags default to on")
	}

	m = NewManager(" bad , Analytics_Fallback = OFF ,beta=20%")
	if m.On(AnalyticsFallback) {
		t.Fatal("configured value should override the default")
	}

	raw := m.Raw()
	if len(raw) != 4 {
		t.Fatalf("expected 3 defaults plus beta, got %#v", raw)
	}
	if raw["beta"] != "20%" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	list := m.List(7)
	if len(list) != 4 {
		t.Fatalf("expected 4 flags, got %d", len(list))
	}
	if list[0].Name != AnalyticsFallback || list[0].Enabled || list[0].Value != "off" {
		t.Fatalf("unexpected first flag: %#v", list[0])
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Fatal("flags must be sorted by name")
		}
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(AnalyticsFallback, 1) {
		t.Fatal("nil manager reports everything off")
	}
}
