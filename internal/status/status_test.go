package status

import "testing"

func TestNotifyNeverBlocks(t *testing.T) {
	n := NewNotifier(2)
	for i := 0; i < 5; i++ {
		n.Notify(Update{Phase: "gather", PagesScraped: i})
	}

	if n.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", n.Dropped())
	}

	n.Close()
	var got []int
	for u := range n.Updates() {
		got = append(got, u.PagesScraped)
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("delivered %v, want [0 1]", got)
	}
}

func TestNilNotifier(t *testing.T) {
	var n *Notifier
	n.Notify(Update{Message: "ignored"})
	n.Close()
	if n.Dropped() != 0 {
		t.Error("nil notifier reported drops")
	}
}
