package app_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gigboard_backend/internal/app"
	"gigboard_backend/internal/email"
	"gigboard_backend/internal/models"
	"gigboard_backend/test/helpers"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	mu        sync.Mutex
	templates []string
}

func (m *recordingMailer) Send(*email.Email) error { return nil }

func (m *recordingMailer) SendTemplate(_ []string, _ string, templateName string, _ email.TemplateData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, templateName)
	return nil
}

type server struct {
	t      *testing.T
	app    *app.App
	mailer *recordingMailer
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg := helpers.TestConfig()
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = t.TempDir()
	cfg.Storage.BaseURL = "/api/v1/files"
	cfg.Upload.MaxSize = 5 << 20
	cfg.Upload.MaxUserStorage = 100 << 20
	cfg.Upload.ImageQuality = 85
	cfg.Worker.InboxRetentionDays = 30

	db := helpers.NewTestDBWithConfig(t, cfg)
	mailer := &recordingMailer{}
	a, err := app.New(cfg, db, app.WithSynchronousEvents(), app.WithMailer(mailer))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &server{t: t, app: a, mailer: mailer}
}

func (s *server) token(userID string, roles ...string) string {
	s.t.Helper()
	tok, err := s.app.Tokens.GenerateToken(userID, roles...)
	require.NoError(s.t, err)
	return tok
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := sonic.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	errObj, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// upload загружает PNG и возвращает id и url
func (s *server) upload(token string) (string, string) {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "look.png")
	require.NoError(s.t, err)
	_, err = part.Write(pngBytes(s.t))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	out := decode(s.t, w)
	return out["id"].(string), out["url"].(string)
}

func gigBody(title string) map[string]any {
	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Second)
	return map[string]any{
		"title":                title,
		"description":          "Editorial shoot in the old town",
		"compensation_type":    "tfp",
		"location":             map[string]any{"text": "Almaty"},
		"start_time":           start,
		"end_time":             start.Add(4 * time.Hour),
		"application_deadline": start.Add(-24 * time.Hour),
		"max_applicants":       2,
		"publish":              true,
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAuthRequired(t *testing.T) {
	s := newServer(t)

	w := s.do(http.MethodPost, "/api/v1/gigs", "", gigBody("No token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/gigs", "not-a-jwt", gigBody("Bad token"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfiles(t *testing.T) {
	s := newServer(t)
	tok := s.token("idp-42")

	w := s.do(http.MethodGet, "/api/v1/profiles/me", tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPut, "/api/v1/profiles/me", tok, map[string]any{
		"handle": "Aru.Photo",
		"email":  "aru@example.com",
		"roles":  []string{"contributor", "talent"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "handle must be lowercase")

	w = s.do(http.MethodPut, "/api/v1/profiles/me", tok, map[string]any{
		"handle": "aru.photo",
		"email":  "aru@example.com",
		"roles":  []string{"ADMIN"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admin cannot be self-assigned")

	w = s.do(http.MethodPut, "/api/v1/profiles/me", tok, map[string]any{
		"handle": "aru.photo",
		"email":  "aru@example.com",
		"roles":  []string{"contributor", "talent"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	me := decode(t, w)
	assert.ElementsMatch(t, []any{"CONTRIBUTOR", "TALENT"}, me["roles"])
	assert.Equal(t, "free", me["subscription_tier"])
	assert.NotNil(t, me["limits"])

	w = s.do(http.MethodGet, "/api/v1/profiles/by-handle/aru.photo", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	public := decode(t, w)
	assert.Nil(t, public["email"], "contacts are private")

	other := s.token("idp-43")
	w = s.do(http.MethodPut, "/api/v1/profiles/me", other, map[string]any{
		"handle": "aru.photo",
		"roles":  []string{"talent"},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	talent := helpers.CreateProfile(t, s.app.DB, "dana", models.RoleTalent)

	w := s.do(http.MethodPut, "/api/v1/admin/profiles/"+talent.UserID+"/tier", s.token(talent.UserID, "TALENT"), map[string]any{"tier": "pro"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := s.token("root", "ADMIN")
	w = s.do(http.MethodPut, "/api/v1/admin/profiles/"+talent.UserID+"/tier", admin, map[string]any{"tier": "pro"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pro", decode(t, w)["subscription_tier"])

	w = s.do(http.MethodDelete, "/api/v1/admin/notifications/cleanup?older_than=720h", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, "/api/v1/admin/notifications/cleanup?older_than=soon", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGig_ValidationAndRoles(t *testing.T) {
	s := newServer(t)
	owner := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)
	talent := helpers.CreateProfile(t, s.app.DB, "model", models.RoleTalent)

	bad := gigBody("Reversed")
	bad["end_time"] = bad["start_time"].(time.Time).Add(-time.Hour)
	w := s.do(http.MethodPost, "/api/v1/gigs", s.token(owner.UserID), bad)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "Must be after start_time", details["end_time"])

	w = s.do(http.MethodPost, "/api/v1/gigs", s.token(talent.UserID), gigBody("Not mine"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "NOT_CONTRIBUTOR", errorCode(t, w))
}

func TestDraftGigVisibleOnlyToOwner(t *testing.T) {
	s := newServer(t)
	owner := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)

	body := gigBody("Draft")
	body["publish"] = false
	w := s.do(http.MethodPost, "/api/v1/gigs", s.token(owner.UserID), body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gigID := decode(t, w)["id"].(string)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/gigs/"+gigID, "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/gigs/"+gigID, s.token(owner.UserID), nil).Code)

	list := decode(t, s.do(http.MethodGet, "/api/v1/gigs", "", nil))
	assert.EqualValues(t, 0, list["total"])

	w = s.do(http.MethodPost, "/api/v1/gigs/"+gigID+"/publish", s.token(owner.UserID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["accepting_applications"])

	list = decode(t, s.do(http.MethodGet, "/api/v1/gigs?compensation_type=TFP", "", nil))
	assert.EqualValues(t, 1, list["total"])
}

func TestApplyToGig_HTTPErrors(t *testing.T) {
	s := newServer(t)
	owner := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)
	talent := helpers.CreateProfile(t, s.app.DB, "model", models.RoleTalent)

	w := s.do(http.MethodPost, "/api/v1/gigs", s.token(owner.UserID), gigBody("Lookbook"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gigID := decode(t, w)["id"].(string)
	path := "/api/v1/gigs/" + gigID + "/applications"

	w = s.do(http.MethodPost, path, s.token(talent.UserID), map[string]any{"note": "available all week"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, path, s.token(talent.UserID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_APPLICATION", errorCode(t, w))

	w = s.do(http.MethodPost, "/api/v1/gigs/missing/applications", s.token(talent.UserID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// список заявок виден только владельцу
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, path, s.token(talent.UserID), nil).Code)
	w = s.do(http.MethodGet, path+"?status=pending", s.token(owner.UserID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	unread := decode(t, s.do(http.MethodGet, "/api/v1/notifications/unread-count", s.token(owner.UserID), nil))
	assert.EqualValues(t, 1, unread["unread_count"])
}

func TestFullGigToShowcaseFlow(t *testing.T) {
	s := newServer(t)
	owner := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)
	anna := helpers.CreateProfile(t, s.app.DB, "anna", models.RoleTalent)
	bota := helpers.CreateProfile(t, s.app.DB, "bota", models.RoleTalent)
	ownerTok, annaTok, botaTok := s.token(owner.UserID), s.token(anna.UserID), s.token(bota.UserID)

	// гиг и заявки
	w := s.do(http.MethodPost, "/api/v1/gigs", ownerTok, gigBody("Autumn lookbook"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gigID := decode(t, w)["id"].(string)

	var appIDs []string
	for _, tok := range []string{annaTok, botaTok} {
		w = s.do(http.MethodPost, "/api/v1/gigs/"+gigID+"/applications", tok, nil)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		appIDs = append(appIDs, decode(t, w)["id"].(string))
	}
	for _, id := range appIDs {
		w = s.do(http.MethodPut, "/api/v1/applications/"+id+"/status", ownerTok, map[string]any{"status": "accepted"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	// таланту пришло уведомление о смене статуса
	inbox := decode(t, s.do(http.MethodGet, "/api/v1/notifications?unread_only=true", annaTok, nil))
	require.EqualValues(t, 1, inbox["total"])
	note := inbox["notifications"].([]any)[0].(map[string]any)
	assert.Equal(t, string(models.EventApplicationStatusChanged), note["type"])

	w = s.do(http.MethodPut, "/api/v1/notifications/"+note["id"].(string)+"/read", annaTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, s.do(http.MethodGet, "/api/v1/notifications/unread-count", annaTok, nil))["unread_count"])

	// шоукейс до завершения гига недоступен
	mediaIDs := make([]string, 0, 3)
	var firstURL string
	for i := 0; i < 3; i++ {
		id, url := s.upload(ownerTok)
		mediaIDs = append(mediaIDs, id)
		if i == 0 {
			firstURL = url
		}
	}
	w = s.do(http.MethodPost, "/api/v1/showcases", ownerTok, map[string]any{"gig_id": gigID, "media_ids": mediaIDs})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "GIG_NOT_COMPLETED", errorCode(t, w))

	for _, step := range []string{"close", "book", "complete"} {
		w = s.do(http.MethodPost, "/api/v1/gigs/"+gigID+"/"+step, ownerTok, nil)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", step, w.Body.String())
	}
	assert.Equal(t, "COMPLETED", decode(t, w)["status"])

	// повторное завершение запрещено
	w = s.do(http.MethodPost, "/api/v1/gigs/"+gigID+"/complete", ownerTok, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/showcases", ownerTok, map[string]any{
		"gig_id":    gigID,
		"media_ids": mediaIDs,
		"caption":   "Autumn in the city",
		"palette":   []string{"#aa5500", "#223344"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	showcase := decode(t, w)
	showcaseID := showcase["id"].(string)
	assert.Equal(t, "pending_approval", showcase["status"])
	assert.Len(t, showcase["approvals"], 2)

	// до согласования шоукейс и его файлы не публичны
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/showcases/"+showcaseID, "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/showcases/"+showcaseID, annaTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, firstURL, "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, firstURL, ownerTok, nil).Code)
	// и файлы ожидающего шоукейса удалить нельзя
	w = s.do(http.MethodDelete, "/api/v1/uploads/"+mediaIDs[0], ownerTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_OPERATION", errorCode(t, w))

	// создатель не голосует за свой шоукейс
	w = s.do(http.MethodPost, "/api/v1/showcases/"+showcaseID+"/approvals", ownerTok, map[string]any{"action": "approve"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/showcases/"+showcaseID+"/approvals", annaTok, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pending_approval", decode(t, w)["status"])

	w = s.do(http.MethodPost, "/api/v1/showcases/"+showcaseID+"/approvals", botaTok, map[string]any{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	approved := decode(t, w)
	assert.Equal(t, "approved", approved["status"])
	assert.Equal(t, "PUBLIC", approved["visibility"])

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/showcases/"+showcaseID, "", nil).Code)
	list := decode(t, s.do(http.MethodGet, "/api/v1/gigs/"+gigID+"/showcases", "", nil))
	assert.EqualValues(t, 1, list["total"])

	file := s.do(http.MethodGet, firstURL, "", nil)
	assert.Equal(t, http.StatusOK, file.Code)
	assert.Contains(t, file.Header().Get("Cache-Control"), "public")

	// медиа опубликованного шоукейса нельзя удалить
	w = s.do(http.MethodDelete, "/api/v1/uploads/"+mediaIDs[0], ownerTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.mailer.mu.Lock()
	defer s.mailer.mu.Unlock()
	assert.Equal(t, []string{string(models.EventShowcaseApproved)}, s.mailer.templates)
}

func TestUploads(t *testing.T) {
	s := newServer(t)
	user := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)
	tok := s.token(user.UserID)

	id, _ := s.upload(tok)

	w := s.do(http.MethodGet, "/api/v1/uploads/mine", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = s.do(http.MethodGet, "/api/v1/uploads/"+id, s.token("stranger"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	usage := decode(t, s.do(http.MethodGet, "/api/v1/uploads/storage/usage", tok, nil))
	assert.Greater(t, usage["used"].(float64), float64(0))

	assert.Equal(t, http.StatusOK, s.do(http.MethodDelete, "/api/v1/uploads/"+id, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/uploads/"+id, tok, nil).Code)
}

func TestNotificationStream(t *testing.T) {
	s := newServer(t)
	owner := helpers.CreateProfile(t, s.app.DB, "studio", models.RoleContributor)
	talent := helpers.CreateProfile(t, s.app.DB, "model", models.RoleTalent)
	ownerTok := s.token(owner.UserID)

	srv := httptest.NewServer(s.app.Router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/notifications/stream"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + ownerTok}})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var frame struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal(raw, &frame))
	require.Equal(t, "ready", frame.Type)

	w := s.do(http.MethodPost, "/api/v1/gigs", ownerTok, gigBody("Street style"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	gigID := decode(t, w)["id"].(string)

	w = s.do(http.MethodPost, "/api/v1/gigs/"+gigID+"/applications", s.token(talent.UserID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err = conn.ReadMessage()
	require.NoError(t, err)

	frame.Data = nil
	require.NoError(t, sonic.Unmarshal(raw, &frame))
	assert.Equal(t, "notification", frame.Type)
	assert.Equal(t, string(models.EventApplicationSubmitted), frame.Data["type"])
	assert.Equal(t, "New application", frame.Data["title"])
}
