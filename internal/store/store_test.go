package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + directory)", result.Version)
	}
}

func TestContactUpsertAndList(t *testing.T) {
	db := testDB(t)

	c := &Contact{ID: "1", Name: "Alice", Email: "alice@example.com", Synced: true}
	if err := db.UpsertContact(c); err != nil {
		t.Fatal(err)
	}

	c.Name = "Alice Updated"
	if err := db.UpsertContact(c); err != nil {
		t.Fatal(err)
	}

	contacts, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	if contacts[0].Name != "Alice Updated" {
		t.Errorf("name = %q, want Alice Updated", contacts[0].Name)
	}
}

func TestReplaceContactsDropsStale(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{ID: "1", Name: "Old"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertContact(&Contact{ID: "2", Name: "Stale"}); err != nil {
		t.Fatal(err)
	}

	// Full-collection sync: the server no longer knows contact 2.
	fresh := []Contact{{ID: "1", Name: "New", Synced: true}}
	if err := db.ReplaceContacts(fresh); err != nil {
		t.Fatal(err)
	}

	contacts, err := db.ListContacts()
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 1 || contacts[0].ID != "1" {
		t.Fatalf("got %v, want only contact 1", contacts)
	}
	if contacts[0].Name != "New" {
		t.Errorf("name = %q, want New", contacts[0].Name)
	}
}

func TestSetContactBlocked(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{ID: "1", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := db.SetContactBlocked("1", true); err != nil {
		t.Fatal(err)
	}

	c, err := db.GetContact("1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || !c.Blocked {
		t.Errorf("got %+v, want blocked contact", c)
	}
}

func TestFindConversationByPairBothOrderings(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", ParticipantA: "1", ParticipantB: "2"}); err != nil {
		t.Fatal(err)
	}

	for _, pair := range [][2]string{{"1", "2"}, {"2", "1"}} {
		c, err := db.FindConversationByPair(pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if c == nil || c.ID != "c1" {
			t.Errorf("FindConversationByPair(%q, %q) = %v, want c1", pair[0], pair[1], c)
		}
	}

	c, err := db.FindConversationByPair("1", "3")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nil for unknown pair, got %v", c)
	}
}

func TestDeleteConversationRemovesMessages(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertConversation(&Conversation{ID: "c1", ParticipantA: "1", ParticipantB: "2"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessage(&Message{ID: "m1", ConversationID: "c1", SenderID: "1", Body: "hi", SentAt: 1000}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteConversation("c1"); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after conversation delete, want 0", len(msgs))
	}
}

func TestMessageOrderingBySentAt(t *testing.T) {
	db := testDB(t)

	// Insert out of order.
	for _, m := range []Message{
		{ID: "m2", ConversationID: "c1", SentAt: 2000},
		{ID: "m1", ConversationID: "c1", SentAt: 1000},
		{ID: "m3", ConversationID: "c1", SentAt: 3000},
	} {
		if err := db.UpsertMessage(&m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, want)
		}
	}
}

func TestReplaceMessageSwapsIDs(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{ID: "temp-1-abc", ConversationID: "c1", Body: "hi", SentAt: 1000}); err != nil {
		t.Fatal(err)
	}

	confirmed := &Message{ID: "42", ConversationID: "c1", Body: "hi", SentAt: 1000, Synced: true}
	if err := db.ReplaceMessage("temp-1-abc", confirmed); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want exactly 1 after replace", len(msgs))
	}
	if msgs[0].ID != "42" || !msgs[0].Synced {
		t.Errorf("got %+v, want confirmed id 42", msgs[0])
	}
}

func TestPendingOpsFIFO(t *testing.T) {
	db := testDB(t)

	if err := db.AppendPending("delete_contact", `{"contact_id":"1"}`); err != nil {
		t.Fatal(err)
	}
	if err := db.AppendPending("block_contact", `{"contact_id":"2","blocked":true}`); err != nil {
		t.Fatal(err)
	}

	ops, err := db.PendingOps()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(ops))
	}
	if ops[0].Kind != "delete_contact" || ops[1].Kind != "block_contact" {
		t.Errorf("order = %s, %s; want delete_contact then block_contact", ops[0].Kind, ops[1].Kind)
	}

	if err := db.RemovePending(ops[0].Seq); err != nil {
		t.Fatal(err)
	}
	count, err := db.PendingCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("count = %d after remove, want 1", count)
	}
}

func TestDirectoryFallback(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertDirectoryEntry(&DirectoryEntry{ID: "9", Name: "Known User"}); err != nil {
		t.Fatal(err)
	}
	// Empty fields must not clobber existing values.
	if err := db.UpsertDirectoryEntry(&DirectoryEntry{ID: "9", Photo: "p.png"}); err != nil {
		t.Fatal(err)
	}

	e, err := db.GetDirectoryEntry("9")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || e.Name != "Known User" || e.Photo != "p.png" {
		t.Errorf("got %+v, want merged entry", e)
	}
}
