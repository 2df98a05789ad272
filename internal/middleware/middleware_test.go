package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

func TestJWT_SetsClaimsAndRoleGate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("secret", 1)
	userID := uuid.New()

	r := gin.New()
	r.GET("/me", JWT(jwtSvc), RequireRole(models.RoleOrganiser), func(c *gin.Context) {
		id, _ := UserID(c)
		response.OK(c, gin.H{"user_id": id.String()})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + mustToken(t, jwtSvc, userID, "attendee"), http.StatusForbidden},
		{"organiser", "Bearer " + mustToken(t, jwtSvc, userID, "organiser"), http.StatusOK},
		{"lowercase scheme", "bearer " + mustToken(t, jwtSvc, userID, "organiser"), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestLogger_IncludesUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	userID := uuid.New()

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(ContextUserID, userID) }, Logger(zap.New(core)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.Equal(t, int64(http.StatusNoContent), fields["status"])
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://localhost:3000"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOptionalJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwtSvc := auth.NewJWTService("secret", 1)
	userID := uuid.New()

	r := gin.New()
	r.GET("/events/x", OptionalJWT(jwtSvc), func(c *gin.Context) {
		id, ok := UserID(c)
		response.OK(c, gin.H{"signed_in": ok, "user_id": id.String()})
	})

	get := func(header string) map[string]interface{} {
		req := httptest.NewRequest(http.MethodGet, "/events/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Data
	}

	assert.Equal(t, false, get("")["signed_in"])
	assert.Equal(t, false, get("Bearer nope")["signed_in"])
	data := get("Bearer " + mustToken(t, jwtSvc, userID, "attendee"))
	assert.Equal(t, true, data["signed_in"])
	assert.Equal(t, userID.String(), data["user_id"])
}

func TestCORS_Wildcard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS(" * "))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Vary"))
}

func mustToken(t *testing.T, svc *auth.JWTService, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := svc.Generate(&models.User{ID: userID, Email: "u@example.com", Role: models.Role(role)})
	require.NoError(t, err)
	return tok
}
