package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListContactsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		if r.URL.Path != "/contatos" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contatos": [
			{"id": "1", "nome": "Alice", "email": "a@x.com", "foto_perfil": "", "bloqueio": false},
			{"id": "2", "nome": "Bob", "email": "b@x.com", "foto_perfil": "b.png", "bloqueio": true}
		]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	contacts, err := c.ListContacts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(contacts))
	}
	if contacts[0].Name != "Alice" || !contacts[0].Synced {
		t.Errorf("contacts[0] = %+v", contacts[0])
	}
	if !contacts[1].Blocked {
		t.Error("contacts[1] should be blocked")
	}
}

func TestCreateContactEnvelopeAndBare(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", nil)

	body = `{"message": "ok", "contato": {"id": "7", "nome": "Carol", "email": "c@x.com"}}`
	contact, _, err := c.CreateContact(context.Background(), "c@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if contact == nil || contact.ID != "7" {
		t.Fatalf("contact = %+v, want id 7", contact)
	}

	// Already in the list: 200 with a plain message and no record.
	body = `{"message": "Este contato já está na sua lista"}`
	contact, msg, err := c.CreateContact(context.Background(), "c@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if contact != nil {
		t.Errorf("contact = %+v, want nil", contact)
	}
	if msg == "" {
		t.Error("expected a server message")
	}
}

func TestRejectionMessageSourcedFromBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "Contato não encontrado ou está bloqueado"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	_, _, err := c.CreateConversation(context.Background(), "5")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRejection(err) {
		t.Fatalf("expected RemoteRejection, got %T: %v", err, err)
	}
	rej := err.(*RemoteRejection)
	if rej.Status != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rej.Status)
	}
	if rej.Message != "Contato não encontrado ou está bloqueado" {
		t.Errorf("message = %q", rej.Message)
	}
}

func TestTransportErrorOnUnreachableServer(t *testing.T) {
	// A closed server yields a connection error, not a rejection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, "tok", nil)
	err := c.DeleteContact(context.Background(), "1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransport(err) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if IsRejection(err) {
		t.Error("transport error must not classify as rejection")
	}
}

func TestCreateConversationStatusDistinguishesCreated(t *testing.T) {
	status := http.StatusCreated
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id": "c9", "id_usuario1": "1", "id_usuario2": "5"}`))
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", nil)

	conv, created, err := c.CreateConversation(context.Background(), "5")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Error("201 should report created=true")
	}
	if conv.ID != "c9" || conv.ParticipantB != "5" {
		t.Errorf("conv = %+v", conv)
	}

	status = http.StatusOK
	_, created, err = c.CreateConversation(context.Background(), "5")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("200 should report created=false (already existed)")
	}
}

func TestListMessagesPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "20" {
			t.Errorf("per_page = %q, want 20", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"mensagens": [
				{"id": "10", "id_usuario": "1", "texto": "oi", "data_envio": "2026-08-30T12:00:00Z"},
				{"id": "11", "id_usuario": "2", "texto": "olá", "data_envio": "2026-08-30T12:01:00Z"}
			],
			"paginas": 3, "total": 44, "pagina_atual": 1
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	page, err := c.ListMessages(context.Background(), "c1", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if page.Pages != 3 || page.Total != 44 {
		t.Errorf("page meta = %+v", page)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(page.Messages))
	}
	m := page.Messages[0]
	if m.ConversationID != "c1" || m.Body != "oi" || !m.Synced {
		t.Errorf("message = %+v", m)
	}
	if m.SentAt == 0 {
		t.Error("data_envio not parsed")
	}
}

func TestListMessagesTimestampForms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// The server emits RFC 3339, zone-less isoformat, or null.
		_, _ = w.Write([]byte(`{
			"mensagens": [
				{"id": "10", "id_usuario": "1", "texto": "a", "data_envio": "2026-08-30T12:00:00Z"},
				{"id": "11", "id_usuario": "1", "texto": "b", "data_envio": "2026-08-30T12:01:00.123456"},
				{"id": "12", "id_usuario": "1", "texto": "c", "data_envio": null}
			],
			"paginas": 1, "total": 3, "pagina_atual": 1
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", nil)
	before := time.Now().UnixMilli()
	page, err := c.ListMessages(context.Background(), "c1", 1, 0)
	after := time.Now().UnixMilli()
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(page.Messages))
	}

	if want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC).UnixMilli(); page.Messages[0].SentAt != want {
		t.Errorf("zoned SentAt = %d, want %d", page.Messages[0].SentAt, want)
	}
	zoneless := page.Messages[1].SentAt
	if want := time.Date(2026, 8, 30, 12, 1, 0, 123456000, time.UTC).UnixMilli(); zoneless != want {
		t.Errorf("zone-less SentAt = %d, want %d", zoneless, want)
	}
	nulled := page.Messages[2].SentAt
	if nulled < before || nulled > after {
		t.Errorf("null data_envio SentAt = %d, want local clock in [%d, %d]", nulled, before, after)
	}
	if nulled == 0 {
		t.Error("null data_envio mapped to the epoch")
	}
}

func TestReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound) // any response means the server is up
	}))
	c := New(srv.URL, "tok", nil)
	if !c.Reachable(context.Background()) {
		t.Error("live server reported unreachable")
	}

	srv.Close()
	if c.Reachable(context.Background()) {
		t.Error("closed server reported reachable")
	}
}
