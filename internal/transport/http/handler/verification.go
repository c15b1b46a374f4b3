package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/go-verify-api/internal/application/verification"
)

const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Verification</title></head>
<body>
<p>Authorization complete. You can close this window.</p>
<script>window.close();</script>
</body>
</html>
`

// VerificationHandler handles signup, code confirmation and the number
// verification OAuth flow.
type VerificationHandler struct {
	svc verification.Service
}

func NewVerificationHandler(svc verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

func (h *VerificationHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req verification.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.State = r.URL.Query().Get("state")

	res, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	status := http.StatusAccepted
	if res.SilentAttempted {
		status = http.StatusOK
	}
	writeJSON(w, status, VerifiedEnvelope{Verified: res.Verified})
}

// verifyBody accepts the code as a JSON string or a JSON number.
type verifyBody struct {
	ID   string          `json:"id"`
	Code json.RawMessage `json:"code"`
}

// codeText returns the code as sent. Number literals keep their original
// text so signs, decimals and exponents still fail the digits rule.
func codeText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

func (h *VerificationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body verifyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	code, err := codeText(body.Code)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	verified, err := h.svc.Confirm(r.Context(), verification.ConfirmRequest{ID: body.ID, Code: code})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Verified: verified})
}

func (h *VerificationHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	err := h.svc.Callback(r.Context(), verification.CallbackRequest{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(callbackPage))
}

func (h *VerificationHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req verification.AuthorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	authURL, err := h.svc.Authorize(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthURLEnvelope{AuthURL: authURL})
}
