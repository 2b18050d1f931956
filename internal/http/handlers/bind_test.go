package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saarfitness/gymhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindTarget struct {
	Email  string `json:"email" binding:"required,email"`
	Amount int    `json:"amount" binding:"omitempty,min=1"`
}

type bindErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details struct {
		Fields []handlers.FieldError `json:"fields"`
		JSON   string                `json:"json"`
	} `json:"details"`
}

func bindEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		var target bindTarget

		if !handlers.BindJSON(c, &target) {
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "email": target.Email})
	}
}

func TestBindJSON(t *testing.T) {
	r := setupRouter(http.MethodPost, "/echo", bindEcho())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
		wantRule   string
		wantJSON   string
	}{
		{
			name:       "valid body",
			body:       `{"email":"m@example.com","amount":5}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing required field",
			body:       `{"amount":5}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "email",
			wantRule:   "required",
		},
		{
			name:       "invalid email",
			body:       `{"email":"nope","amount":5}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "email",
			wantRule:   "email",
		},
		{
			name:       "under minimum",
			body:       `{"email":"m@example.com","amount":0}`,
			wantStatus: http.StatusOK, // omitempty skips zero values
		},
		{
			// a truncated document raises an EOF error, not a SyntaxError
			name:       "broken syntax",
			body:       `{"email":`,
			wantStatus: http.StatusBadRequest,
			wantJSON:   "invalid_json_syntax",
		},
		{
			name:       "malformed token",
			body:       `{]`,
			wantStatus: http.StatusBadRequest,
			wantJSON:   "invalid_json_syntax",
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantJSON:   "invalid_json_syntax",
		},
		{
			name:       "wrong type",
			body:       `{"email":"m@example.com","amount":"five"}`,
			wantStatus: http.StatusBadRequest,
			wantJSON:   "invalid_json_type",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tc.wantStatus, w.Body.String())
			}

			if tc.wantStatus == http.StatusOK {
				return
			}

			var resp bindErrorResponse

			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if resp.Code != "invalid_request" {
				t.Fatalf("code = %q", resp.Code)
			}

			if tc.wantJSON != "" {
				if resp.Details.JSON != tc.wantJSON {
					t.Fatalf("details.json = %q, want %q", resp.Details.JSON, tc.wantJSON)
				}
				return
			}

			if len(resp.Details.Fields) != 1 {
				t.Fatalf("fields = %+v", resp.Details.Fields)
			}

			fe := resp.Details.Fields[0]

			if fe.Field != tc.wantField || fe.Rule != tc.wantRule {
				t.Fatalf("field error = %+v, want %s/%s", fe, tc.wantField, tc.wantRule)
			}
		})
	}
}
