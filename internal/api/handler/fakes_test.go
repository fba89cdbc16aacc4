package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/kosix/kosix/internal/account"
	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/auth"
	"github.com/kosix/kosix/internal/session"
	"github.com/kosix/kosix/internal/team"
	"github.com/kosix/kosix/internal/upload"
)

const testBcryptCost = 4

// --- In-memory account repository ---

type memAccounts struct {
	byID map[uuid.UUID]*account.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byID: map[uuid.UUID]*account.Account{}}
}

func (m *memAccounts) Create(_ context.Context, a *account.Account) error {
	for _, existing := range m.byID {
		if existing.Email == a.Email {
			return account.ErrDuplicateEmail
		}
		if existing.Username == a.Username {
			return account.ErrDuplicateUsername
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	m.byID[a.ID] = a
	return nil
}

func (m *memAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	if a, ok := m.byID[id]; ok {
		return a, nil
	}
	return nil, account.ErrAccountNotFound
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	for _, a := range m.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (m *memAccounts) GetByUsername(_ context.Context, username string) (*account.Account, error) {
	for _, a := range m.byID {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, account.ErrAccountNotFound
}

func (m *memAccounts) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	if a, ok := m.byID[id]; ok {
		a.PasswordHash = &hash
		return nil
	}
	return account.ErrAccountNotFound
}

// --- In-memory session repository ---

type memSessions struct {
	byToken map[string]*session.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byToken: map[string]*session.Session{}}
}

func (m *memSessions) Create(_ context.Context, s *session.Session) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	m.byToken[s.Token] = s
	return nil
}

func (m *memSessions) FindActiveByToken(_ context.Context, token string) (*session.Session, error) {
	if s, ok := m.byToken[token]; ok && s.Active {
		return s, nil
	}
	return nil, session.ErrSessionNotFound
}

func (m *memSessions) Deactivate(_ context.Context, token string) (bool, error) {
	if s, ok := m.byToken[token]; ok && s.Active {
		s.Active = false
		return true, nil
	}
	return false, nil
}

func (m *memSessions) Rotate(ctx context.Context, oldToken string, next *session.Session) error {
	done, err := m.Deactivate(ctx, oldToken)
	if err != nil {
		return err
	}
	if !done {
		return session.ErrSessionNotFound
	}
	return m.Create(ctx, next)
}

// --- In-memory team repository ---

type relPair struct {
	teamID    uuid.UUID
	accountID uuid.UUID
}

type memTeams struct {
	byID      map[uuid.UUID]*team.Team
	relations map[team.Relation]map[relPair]bool
}

func newMemTeams() *memTeams {
	return &memTeams{
		byID: map[uuid.UUID]*team.Team{},
		relations: map[team.Relation]map[relPair]bool{
			team.RelationMembers:  {},
			team.RelationManagers: {},
		},
	}
}

func (m *memTeams) Create(_ context.Context, t *team.Team) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.byID[t.ID] = t
	return nil
}

func (m *memTeams) GetByID(_ context.Context, id uuid.UUID) (*team.Team, error) {
	if t, ok := m.byID[id]; ok {
		return t, nil
	}
	return nil, team.ErrTeamNotFound
}

func (m *memTeams) memberCount(teamID uuid.UUID) int {
	n := 0
	for p := range m.relations[team.RelationMembers] {
		if p.teamID == teamID {
			n++
		}
	}
	return n
}

func (m *memTeams) summary(t *team.Team) team.Summary {
	return team.Summary{
		ID:          t.ID,
		Name:        t.Name,
		AvatarURL:   t.AvatarURL,
		OwnerID:     t.OwnerID,
		MemberCount: m.memberCount(t.ID),
	}
}

func (m *memTeams) List(_ context.Context, ownerID *uuid.UUID, _, _ int) ([]team.Summary, error) {
	out := []team.Summary{}
	for _, t := range m.byID {
		if ownerID != nil && t.OwnerID != *ownerID {
			continue
		}
		out = append(out, m.summary(t))
	}
	return out, nil
}

func (m *memTeams) ListByAccount(_ context.Context, accountID uuid.UUID) ([]team.Summary, error) {
	seen := map[uuid.UUID]bool{}
	out := []team.Summary{}
	for id, t := range m.byID {
		if t.OwnerID == accountID && !seen[id] {
			seen[id] = true
			out = append(out, m.summary(t))
		}
	}
	for _, rel := range []team.Relation{team.RelationMembers, team.RelationManagers} {
		for p := range m.relations[rel] {
			if p.accountID == accountID && !seen[p.teamID] {
				seen[p.teamID] = true
				out = append(out, m.summary(m.byID[p.teamID]))
			}
		}
	}
	return out, nil
}

func (m *memTeams) Update(_ context.Context, id uuid.UUID, name, avatarURL *string) (*team.Team, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	if name != nil {
		t.Name = *name
	}
	if avatarURL != nil {
		t.AvatarURL = avatarURL
	}
	t.UpdatedAt = time.Now().UTC()
	return t, nil
}

func (m *memTeams) UpdateOwner(_ context.Context, id, ownerID uuid.UUID) (*team.Team, error) {
	t, ok := m.byID[id]
	if !ok {
		return nil, team.ErrTeamNotFound
	}
	t.OwnerID = ownerID
	t.UpdatedAt = time.Now().UTC()
	return t, nil
}

func (m *memTeams) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return team.ErrTeamNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memTeams) Add(_ context.Context, rel team.Relation, teamID, accountID uuid.UUID) (bool, error) {
	p := relPair{teamID, accountID}
	if m.relations[rel][p] {
		return false, nil
	}
	m.relations[rel][p] = true
	return true, nil
}

func (m *memTeams) Remove(_ context.Context, rel team.Relation, teamID uuid.UUID, accountIDs []uuid.UUID) (int, error) {
	removed := 0
	for _, id := range accountIDs {
		p := relPair{teamID, id}
		if m.relations[rel][p] {
			delete(m.relations[rel], p)
			removed++
		}
	}
	return removed, nil
}

func (m *memTeams) Contains(_ context.Context, rel team.Relation, teamID, accountID uuid.UUID) (bool, error) {
	return m.relations[rel][relPair{teamID, accountID}], nil
}

func (m *memTeams) ListAccounts(_ context.Context, rel team.Relation, teamID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	for p := range m.relations[rel] {
		if p.teamID == teamID {
			ids = append(ids, p.accountID)
		}
	}
	return ids, nil
}

// --- In-memory upload repository and storage ---

type memUploads struct {
	byID map[uuid.UUID]*upload.FileUpload
}

func newMemUploads() *memUploads {
	return &memUploads{byID: map[uuid.UUID]*upload.FileUpload{}}
}

func (m *memUploads) Create(_ context.Context, u *upload.FileUpload) error {
	u.ID = uuid.New()
	u.UploadedAt = time.Now().UTC()
	m.byID[u.ID] = u
	return nil
}

func (m *memUploads) GetByID(_ context.Context, id uuid.UUID) (*upload.FileUpload, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, upload.ErrUploadNotFound
}

func (m *memUploads) SetResult(_ context.Context, id uuid.UUID, status upload.Status, url *string) error {
	u, ok := m.byID[id]
	if !ok {
		return upload.ErrUploadNotFound
	}
	u.Status = status
	u.URL = url
	return nil
}

func (m *memUploads) ListByAccount(_ context.Context, accountID uuid.UUID, fileType *upload.FileType, _, _ int) ([]upload.FileUpload, error) {
	out := []upload.FileUpload{}
	for _, u := range m.byID {
		if u.UploadedBy != accountID {
			continue
		}
		if fileType != nil && u.FileType != *fileType {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUploads) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.byID[id]; !ok {
		return upload.ErrUploadNotFound
	}
	delete(m.byID, id)
	return nil
}

type fakeStorage struct {
	uploadErr error
}

func (f *fakeStorage) Upload(_ context.Context, r io.Reader, publicID, _ string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + publicID, nil
}

func (f *fakeStorage) Destroy(_ context.Context, _, _ string) error {
	return nil
}

// --- Test environment ---

type testEnv struct {
	accounts *memAccounts
	sessions *memSessions
	teams    *memTeams
	uploads  *memUploads

	authSvc   *auth.Service
	teamSvc   *team.Service
	uploadSvc *upload.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		accounts: newMemAccounts(),
		sessions: newMemSessions(),
		teams:    newMemTeams(),
		uploads:  newMemUploads(),
	}
	issuer := auth.NewTokenIssuer("handler-test-secret", 30*time.Minute, 7*24*time.Hour)
	env.authSvc = auth.NewService(env.accounts, env.sessions, issuer, testBcryptCost)
	env.teamSvc = team.NewService(env.teams, env.accounts)
	env.uploadSvc = upload.NewService(env.uploads, &fakeStorage{})
	return env
}

func (e *testEnv) register(t *testing.T, email, username string) *auth.AuthResult {
	t.Helper()
	result, err := e.authSvc.Register(context.Background(), email, username, "password123", nil)
	require.NoError(t, err)
	return result
}

// --- Request helpers ---

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

// doRequest builds a request with the chi URL params and authenticated account
// attached, runs the handler, and returns the recorder.
func doRequest(t *testing.T, h http.HandlerFunc, method, target string, body io.Reader, acct *account.Account, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	ctx := req.Context()

	if acct != nil {
		ctx = middleware.WithIdentity(ctx, acct)
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(ctx))
	return w
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func envelopeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	env := parseEnvelope(t, w)
	data, ok := env["data"].(map[string]interface{})
	require.True(t, ok, "response data should be an object: %s", w.Body.String())
	return data
}

func envelopeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := parseEnvelope(t, w)
	apiErr, ok := env["error"].(map[string]interface{})
	require.True(t, ok, "response should carry an error object: %s", w.Body.String())
	return apiErr["code"].(string)
}
