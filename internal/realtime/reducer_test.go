package realtime

import (
	"errors"
	"testing"
)

type rec struct {
	id  string
	val int
}

func (r rec) Key() string { return r.id }

func ids(list []rec) string {
	s := ""
	for _, r := range list {
		s += r.id
	}
	return s
}

func TestApply_Insert(t *testing.T) {
	list := []rec{{"b", 1}, {"c", 1}}
	got, err := Apply(list, Change[rec]{Kind: Insert, Record: rec{"a", 1}})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "abc" {
		t.Errorf("insert order = %q, want abc", ids(got))
	}
	if ids(list) != "bc" {
		t.Errorf("input mutated: %q", ids(list))
	}

	got, err = Apply(got, Change[rec]{Kind: Insert, Record: rec{"b", 9}})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "abc" || got[1].val != 9 {
		t.Errorf("insert of existing id should replace in place: %+v", got)
	}
}

func TestApply_Update(t *testing.T) {
	list := []rec{{"a", 1}, {"b", 1}}
	got, err := Apply(list, Change[rec]{Kind: Update, Record: rec{"b", 2}})
	if err != nil {
		t.Fatal(err)
	}
	if got[1].val != 2 || list[1].val != 1 {
		t.Errorf("update = %+v, input = %+v", got, list)
	}

	got, err = Apply(list, Change[rec]{Kind: Update, Record: rec{"z", 5}})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "zab" {
		t.Errorf("update of unknown id should upsert: %q", ids(got))
	}
}

func TestApply_Delete(t *testing.T) {
	list := []rec{{"a", 1}, {"b", 1}, {"c", 1}}
	got, err := Apply(list, Change[rec]{Kind: Delete, OldID: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "ac" || ids(list) != "abc" {
		t.Errorf("delete = %q, input = %q", ids(got), ids(list))
	}

	got, err = Apply(list, Change[rec]{Kind: Delete, OldID: "zz"})
	if err != nil {
		t.Fatal(err)
	}
	if ids(got) != "abc" {
		t.Errorf("delete of unknown id should be a no-op: %q", ids(got))
	}
}

func TestApply_Errors(t *testing.T) {
	if _, err := Apply(nil, Change[rec]{Kind: Insert}); !errors.Is(err, ErrMissingID) {
		t.Errorf("err = %v, want ErrMissingID", err)
	}
	if _, err := Apply(nil, Change[rec]{Kind: "UPSERT", Record: rec{"a", 1}}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestApply_ReplayIsDeterministic(t *testing.T) {
	changes := []Change[rec]{
		{Kind: Insert, Record: rec{"a", 1}},
		{Kind: Insert, Record: rec{"b", 1}},
		{Kind: Update, Record: rec{"a", 2}},
		{Kind: Delete, OldID: "b"},
		{Kind: Insert, Record: rec{"c", 3}},
	}
	replay := func() []rec {
		var list []rec
		for _, c := range changes {
			var err error
			list, err = Apply(list, c)
			if err != nil {
				t.Fatal(err)
			}
		}
		return list
	}
	first, second := replay(), replay()
	if ids(first) != "ca" || ids(second) != ids(first) || first[1].val != 2 {
		t.Errorf("replay = %+v / %+v", first, second)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"insert": Insert, "UPDATE": Update, " Delete ": Delete} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("TRUNCATE"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("err = %v", err)
	}
}
