package theme

import "testing"

func TestByName_FallsBackToDark(t *testing.T) {
	if got := ByName("light"); got.Name != "light" {
		t.Errorf("ByName(light) = %s", got.Name)
	}
	if got := ByName("no-such-theme"); got.Name != Dark.Name {
		t.Errorf("unknown theme = %s, want %s", got.Name, Dark.Name)
	}
	if _, ok := Lookup("no-such-theme"); ok {
		t.Error("Lookup should report unknown themes")
	}
}

func TestLookup_SystemFollowsBackground(t *testing.T) {
	orig := hasDarkBackground
	t.Cleanup(func() { hasDarkBackground = orig })

	hasDarkBackground = func() bool { return false }
	if got, ok := Lookup(System); !ok || got.Name != "light" {
		t.Errorf("system on light terminal = %s, %v", got.Name, ok)
	}
	hasDarkBackground = func() bool { return true }
	if got, _ := Lookup(System); got.Name != "dark" {
		t.Errorf("system on dark terminal = %s", got.Name)
	}
}

func TestGoalColor(t *testing.T) {
	th := Dark
	if th.GoalColor(40, th.Water) != th.Water {
		t.Error("in-progress goal should use the metric color")
	}
	if th.GoalColor(100, th.Water) != th.Success {
		t.Error("met goal should use the success color")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != len(All)+1 || names[0] != System || names[1] != "dark" {
		t.Errorf("Names = %v", names)
	}
}
