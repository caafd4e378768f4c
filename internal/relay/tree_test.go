package relay

import (
	"reflect"
	"testing"
)

func TestTree_SetReplacesSubtreeAndAncestors(t *testing.T) {
	tr := NewTree()
	tr.Set("rooms/a/iceCandidates/p1", []byte("c1"))
	tr.Set("rooms/a/iceCandidates/p2", []byte("c2"))
	tr.Set("rooms/a/signaling", []byte("offer"))

	if got := tr.Len(); got != 3 {
		t.Fatalf("Len()=%d, want 3", got)
	}

	// Writing a leaf over an interior node drops its descendants.
	tr.Set("rooms/a/iceCandidates", []byte("flat"))
	snap := tr.Snapshot("rooms/a")
	if want := []string{"iceCandidates", "signaling"}; !reflect.DeepEqual(snap.Keys(), want) {
		t.Fatalf("keys=%v, want %v", snap.Keys(), want)
	}

	// Writing below a leaf turns it into an interior node.
	tr.Set("rooms/a/iceCandidates/p3", []byte("c3"))
	snap = tr.Snapshot("rooms/a/iceCandidates")
	if snap.Value() != nil {
		t.Fatalf("interior node still has a value: %q", snap.Value())
	}
	if got := string(snap.Children()["p3"]); got != "c3" {
		t.Fatalf("child p3=%q, want c3", got)
	}
}

func TestTree_RemoveSubtree(t *testing.T) {
	tr := NewTree()
	tr.Set("rooms/a/signaling", []byte("x"))
	tr.Set("rooms/a/iceCandidates/p1", []byte("y"))
	tr.Set("rooms/ab/signaling", []byte("z"))

	if !tr.Remove("rooms/a") {
		t.Fatal("Remove reported nothing deleted")
	}
	if tr.Remove("rooms/a") {
		t.Fatal("second Remove reported a deletion")
	}
	if tr.Snapshot("rooms/a").Exists() {
		t.Fatal("rooms/a still exists")
	}
	if !tr.Snapshot("rooms/ab").Exists() {
		t.Fatal("sibling rooms/ab was removed")
	}
}

func TestTree_SnapshotCopiesValues(t *testing.T) {
	tr := NewTree()
	v := []byte("abc")
	tr.Set("k", v)
	v[0] = 'x'

	snap := tr.Snapshot("k")
	if got := string(snap.Value()); got != "abc" {
		t.Fatalf("value=%q, want abc", got)
	}
	snap.Entries[""][0] = 'y'
	if got := string(tr.Snapshot("k").Value()); got != "abc" {
		t.Fatalf("tree mutated through snapshot: %q", got)
	}
}

func TestSnapshot_ChildrenSkipsDeeperEntries(t *testing.T) {
	snap := Snapshot{Path: "rooms/a", Entries: map[string][]byte{
		"signaling":        []byte("s"),
		"iceCandidates/p1": []byte("c"),
	}}
	children := snap.Children()
	if len(children) != 1 || string(children["signaling"]) != "s" {
		t.Fatalf("children=%v", children)
	}
}
