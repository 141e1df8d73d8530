package verification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/guilda/internal/models"
	"github.com/example/guilda/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureMailer struct {
	sent []Email
	err  error
}

func (m *captureMailer) Send(_ context.Context, e Email) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, e)
	return "msg-1", nil
}

func seedUser(t *testing.T, store *storage.MemoryStore, role models.Role, status models.VendorStatus) {
	t.Helper()
	require.NoError(t, store.UpsertProfile(context.Background(), models.Profile{
		ID: "u1", DisplayName: "Rin", Role: role, VendorStatus: status,
	}))
}

func tokenFromLink(t *testing.T, html string) string {
	t.Helper()
	i := strings.Index(html, "?verify=")
	require.GreaterOrEqual(t, i, 0)
	return html[i+len("?verify=") : i+len("?verify=")+36]
}

func TestSendStoresTokenAndMailsLink(t *testing.T) {
	store := storage.NewMemoryStore()
	seedUser(t, store, models.RoleOtaku, models.VendorActive)
	mailer := &captureMailer{}
	svc := NewService(store, mailer, "Guilda <onboarding@resend.dev>", "https://guilda.test/", nil)

	id, err := svc.Send(context.Background(), Request{Email: "rin@example.com", UserID: "u1", Name: "Rin"})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)

	require.Len(t, mailer.sent, 1)
	e := mailer.sent[0]
	assert.Equal(t, Subject, e.Subject)
	assert.Equal(t, []string{"rin@example.com"}, e.To)
	assert.Contains(t, e.HTML, "Saudações, Rin!")
	assert.Contains(t, e.HTML, "https://guilda.test?verify=")

	p, err := store.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, tokenFromLink(t, e.HTML), p.VerificationToken)
}

func TestSendFailures(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewService(store, &captureMailer{}, "", "https://guilda.test", nil)
	_, err := svc.Send(context.Background(), Request{Email: "x@example.com", UserID: "ghost"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	seedUser(t, store, models.RoleOtaku, models.VendorActive)
	svc = NewService(store, &captureMailer{err: errors.New("smtp down")}, "", "https://guilda.test", nil)
	_, err = svc.Send(context.Background(), Request{Email: "x@example.com", UserID: "u1"})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	cases := []struct {
		name       string
		role       models.Role
		status     models.VendorStatus
		wantVendor bool
		wantStatus models.VendorStatus
		wantMsg    string
	}{
		{"otaku", models.RoleOtaku, models.VendorActive, false, models.VendorActive, MsgVerified},
		{"vendor", models.RoleVendor, models.VendorPending, true, models.VendorPendingVerification, MsgVendorVerified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := storage.NewMemoryStore()
			seedUser(t, store, tc.role, tc.status)
			mailer := &captureMailer{}
			svc := NewService(store, mailer, "", "https://guilda.test", nil)
			_, err := svc.Send(context.Background(), Request{Email: "rin@example.com", UserID: "u1"})
			require.NoError(t, err)
			token := tokenFromLink(t, mailer.sent[0].HTML)

			res, err := svc.Verify(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, tc.wantVendor, res.IsVendor)
			assert.Equal(t, tc.wantMsg, res.Message)

			p, err := store.Profile(context.Background(), "u1")
			require.NoError(t, err)
			assert.True(t, p.EmailVerified)
			assert.Empty(t, p.VerificationToken)
			assert.Equal(t, tc.wantStatus, p.VendorStatus)

			_, err = svc.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken, "token is single use")
		})
	}
}

func TestVerifyUnknownToken(t *testing.T) {
	svc := NewService(storage.NewMemoryStore(), &captureMailer{}, "", "", nil)
	_, err := svc.Verify(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Verify(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRenderDefaultsName(t *testing.T) {
	html, err := Render("", "https://guilda.test?verify=abc")
	require.NoError(t, err)
	assert.Contains(t, html, "Saudações, Aventureiro!")
	assert.Contains(t, html, `href="https://guilda.test?verify=abc"`)
}

func TestRenderEscapesName(t *testing.T) {
	html, err := Render("<script>x</script>", "https://guilda.test")
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>x</script>")
}

func TestResendMailer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_123", r.Header.Get("Authorization"))
		var e Email
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		assert.Equal(t, Subject, e.Subject)
		_, _ = w.Write([]byte(`{"id":"email_abc"}`))
	}))
	defer srv.Close()

	id, err := NewResendMailer("re_123", srv.URL).Send(context.Background(), Email{To: []string{"a@b.c"}, Subject: Subject})
	require.NoError(t, err)
	assert.Equal(t, "email_abc", id)
}

func TestResendMailerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	_, err := NewResendMailer("bad", srv.URL).Send(context.Background(), Email{})
	assert.ErrorContains(t, err, "401")
}

func TestLogMailer(t *testing.T) {
	id, err := LogMailer{}.Send(context.Background(), Email{To: []string{"a@b.c"}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "log-"))
}
