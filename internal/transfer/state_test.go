package transfer

import "testing"

func TestClearBlockTrackingPrefix(t *testing.T) {
	st := newTransferState()
	st.blockNotified["file-a:blk-1:0"] = struct{}{}
	st.blockNotified["file-a:blk-2:1"] = struct{}{}
	st.blockNotified["file-b:blk-1:0"] = struct{}{}

	st.clearBlockTracking("file-a")

	if _, ok := st.blockNotified["file-a:blk-1:0"]; ok {
		t.Error("file-a block entry survived cleanup")
	}
	if _, ok := st.blockNotified["file-a:blk-2:1"]; ok {
		t.Error("file-a block entry survived cleanup")
	}
	if _, ok := st.blockNotified["file-b:blk-1:0"]; !ok {
		t.Error("file-b block entry was removed by file-a cleanup")
	}
}

func TestClearTrackingDropsAllGuards(t *testing.T) {
	st := newTransferState()
	id := "transfer-1"
	st.initializedFiles[id] = struct{}{}
	st.finalizeNotified[id] = struct{}{}
	st.urlResponseExpected[id] = struct{}{}
	st.requestDeadlines[id] = st.startTime

	st.clearTracking(id)

	if len(st.initializedFiles)+len(st.finalizeNotified)+len(st.urlResponseExpected)+len(st.requestDeadlines) != 0 {
		t.Error("clearTracking left residual guards")
	}
}

func TestRemoveItemPreservesOrder(t *testing.T) {
	st := newTransferState()
	st.items = []QueueItem{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	if !st.removeItem("b") {
		t.Fatal("removeItem(b) = false, want true")
	}
	if len(st.items) != 2 || st.items[0].ID != "a" || st.items[1].ID != "c" {
		t.Errorf("items after removal = %v", st.items)
	}
	if st.removeItem("missing") {
		t.Error("removeItem(missing) = true, want false")
	}
}

func TestItemNameResolution(t *testing.T) {
	st := newTransferState()
	st.items = []QueueItem{{ID: "q1", Name: "queued.txt"}}
	st.activeItem = QueueItem{ID: "a1", Name: "active.txt"}
	st.processing = "a1"

	if got := st.itemName("a1"); got != "active.txt" {
		t.Errorf("itemName(a1) = %q, want active.txt", got)
	}
	if got := st.itemName("q1"); got != "queued.txt" {
		t.Errorf("itemName(q1) = %q, want queued.txt", got)
	}
	if got := st.itemName("nope"); got != "Unknown" {
		t.Errorf("itemName(nope) = %q, want Unknown", got)
	}
}

func TestIsTerminal(t *testing.T) {
	st := newTransferState()
	st.completed["done"] = struct{}{}
	st.failed["bad"] = "boom"

	if !st.isTerminal("done") || !st.isTerminal("bad") {
		t.Error("terminal ids not recognized")
	}
	if st.isTerminal("live") {
		t.Error("live id reported terminal")
	}
}
