package handler_test

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosix/kosix/internal/api/handler"
	"github.com/kosix/kosix/internal/api/middleware"
	"github.com/kosix/kosix/internal/auth"
)

func multipartFile(t *testing.T, fieldName, filename string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func newUploadRequest(t *testing.T, body io.Reader, contentType string, result *auth.AuthResult) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/uploads", body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithIdentity(req.Context(), result.Account))

	return req, httptest.NewRecorder()
}

func TestUploadCreate_Success(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	body, contentType := multipartFile(t, "file", "report.pdf", []byte("pdf bytes"))
	req, w := newUploadRequest(t, body, contentType, alice)

	h.Create(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := envelopeData(t, w)
	assert.Equal(t, "report.pdf", data["fileName"])
	assert.Equal(t, "pdf", data["fileType"])
	assert.Equal(t, "success", data["status"])
	assert.NotEmpty(t, data["url"])
	assert.Equal(t, alice.Account.ID.String(), data["uploadedBy"])
}

func TestUploadCreate_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	body, contentType := multipartFile(t, "file", "script.sh", []byte("#!/bin/sh"))
	req, w := newUploadRequest(t, body, contentType, alice)

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", envelopeErrorCode(t, w))
}

func TestUploadCreate_WrongField(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	body, contentType := multipartFile(t, "attachment", "report.pdf", []byte("x"))
	req, w := newUploadRequest(t, body, contentType, alice)

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_UPLOAD", envelopeErrorCode(t, w))
}

func TestUploadList_FilterByType(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	ctx := context.Background()
	_, err := env.uploadSvc.Upload(ctx, "a.png", []byte("x"), alice.Account.ID)
	require.NoError(t, err)
	_, err = env.uploadSvc.Upload(ctx, "b.pdf", []byte("x"), alice.Account.ID)
	require.NoError(t, err)

	w := doRequest(t, h.List, http.MethodGet, "/uploads?fileType=png", nil, alice.Account, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := parseEnvelope(t, w)["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "a.png", items[0].(map[string]interface{})["fileName"])
}

func TestUploadList_UnknownTypeFilter(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	w := doRequest(t, h.List, http.MethodGet, "/uploads?fileType=gif", nil, alice.Account, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_TYPE", envelopeErrorCode(t, w))
}

func TestUploadDelete_Forbidden(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")
	bob := env.register(t, "bob@example.com", "bob")

	record, err := env.uploadSvc.Upload(context.Background(), "a.png", []byte("x"), alice.Account.ID)
	require.NoError(t, err)

	w := doRequest(t, h.Delete, http.MethodDelete, "/uploads/"+record.ID.String(),
		nil, bob.Account, map[string]string{"id": record.ID.String()})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", envelopeErrorCode(t, w))
}

func TestUploadDelete_Success(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	record, err := env.uploadSvc.Upload(context.Background(), "a.png", []byte("x"), alice.Account.ID)
	require.NoError(t, err)

	w := doRequest(t, h.Delete, http.MethodDelete, "/uploads/"+record.ID.String(),
		nil, alice.Account, map[string]string{"id": record.ID.String()})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, env.uploads.byID)
}

func TestUploadDelete_NotFound(t *testing.T) {
	env := newTestEnv(t)
	h := handler.NewUploadHandler(env.uploadSvc)
	alice := env.register(t, "alice@example.com", "alice")

	id := uuid.New()
	w := doRequest(t, h.Delete, http.MethodDelete, "/uploads/"+id.String(),
		nil, alice.Account, map[string]string{"id": id.String()})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", envelopeErrorCode(t, w))
}
