package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/cradoe/gopass"
	"github.com/cradoe/walletguard/internal/errHandler"
	"github.com/cradoe/walletguard/internal/helper"
	"github.com/cradoe/walletguard/internal/mocks"
	"github.com/cradoe/walletguard/internal/models"
	"github.com/cradoe/walletguard/internal/repository"
	"github.com/cradoe/walletguard/internal/risk"
	"github.com/cradoe/walletguard/internal/session"
	"github.com/stretchr/testify/require"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, repository.IdentityRepository) {
	t.Helper()

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	testHelper := helper.New(&baseURL, &wg, nil)
	eh := errHandler.New("", new(mocks.MockMailer), logger, testHelper)

	identities := repository.NewIdentityRepository()

	authHandler := NewAuthHandler(&AuthHandler{
		Identities: identities,
		Sessions:   session.NewManager(),
		Helper:     testHelper,
		Mailer:     new(mocks.MockMailer),
		ErrHandler: eh,
		Config:     mocks.NewMockConfig(),
	})

	return authHandler, identities
}

func seedLoginIdentity(t *testing.T, identities repository.IdentityRepository, password string) *models.Identity {
	t.Helper()

	hashed, err := gopass.Hash(password)
	require.NoError(t, err)

	identity := &models.Identity{
		MobileNumber:   "+15550001111",
		NationalID:     "123456789",
		Email:          "holder@example.com",
		HashedPassword: hashed,
		Status:         models.IdentityActiveStatus,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, identities.Insert(identity))

	return identity
}

func postLogin(t *testing.T, authHandler *AuthHandler, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	requestBody, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	authHandler.HandleAuthLogin(rr, req)

	return rr
}

func TestHandleAuthLogin_ValidCredentials(t *testing.T) {
	authHandler, identities := newTestAuthHandler(t)
	seedLoginIdentity(t, identities, "S3cure&Pass99")

	rr := postLogin(t, authHandler, map[string]string{
		"mobile_number": "+15550001111",
		"password":      "S3cure&Pass99",
	})

	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Contains(t, response, "data")

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Contains(t, data, "auth_token")
	require.Contains(t, data, "token_expiry")
	require.Contains(t, data, "session_id")
	require.NotEmpty(t, data["auth_token"])

	// A session was opened for the identity.
	_, err = authHandler.Sessions.RequireActive("+15550001111")
	require.NoError(t, err)
}

func TestHandleAuthLogin_WrongPassword(t *testing.T) {
	authHandler, identities := newTestAuthHandler(t)
	seedLoginIdentity(t, identities, "S3cure&Pass99")

	rr := postLogin(t, authHandler, map[string]string{
		"mobile_number": "+15550001111",
		"password":      "not-the-password",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	_, err := authHandler.Sessions.RequireActive("+15550001111")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestHandleAuthLogin_LockedAccount(t *testing.T) {
	authHandler, identities := newTestAuthHandler(t)
	identity := seedLoginIdentity(t, identities, "S3cure&Pass99")
	identity.Risk.IncidentCount = risk.LockoutIncidents

	rr := postLogin(t, authHandler, map[string]string{
		"mobile_number": "+15550001111",
		"password":      "S3cure&Pass99",
	})

	require.Equal(t, http.StatusForbidden, rr.Code)
}
