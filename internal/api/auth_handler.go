package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"sharebox/internal/identity"
	"sharebox/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const stateCookieName = "sharebox_auth_state"

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService   service.AuthService
	publicBaseURL string
	log           *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService, publicBaseURL string, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, publicBaseURL: publicBaseURL, log: log}
}

// --- Request/Response Structs ---

type SessionRequest struct {
	AccessToken string `json:"accessToken" binding:"required"`
}

type SessionResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// --- Handler Methods ---

// CreateSession handles the popup flow: the client signed in with the
// provider directly and trades the provider access token for a session.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "accessToken is required")
		return
	}

	token, user, err := h.authService.SessionFromProviderToken(c.Request.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrSignInFailed) {
			abortWithError(c, http.StatusUnauthorized, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred during sign-in")
		}
		return
	}

	c.JSON(http.StatusOK, SessionResponse{Token: token, User: user})
}

// Flow tells the client which sign-in flow fits its environment. Signals
// come from the request: the User-Agent header plus optional width and
// standalone query parameters reported by the page.
func (h *AuthHandler) Flow(c *gin.Context) {
	width, _ := strconv.Atoi(c.Query("width"))
	standalone := c.Query("standalone") == "true"

	flow := identity.ChooseFlow(identity.Signals{
		UserAgent:     c.GetHeader("User-Agent"),
		Standalone:    standalone,
		ViewportWidth: width,
	})
	c.JSON(http.StatusOK, gin.H{"flow": flow})
}

// BeginRedirect starts the redirect flow: remember the state in a cookie
// and send the browser to the provider consent screen.
func (h *AuthHandler) BeginRedirect(c *gin.Context) {
	authURL, state := h.authService.BeginRedirect()
	c.SetCookie(stateCookieName, state, 600, "/", "", false, true)
	c.Redirect(http.StatusFound, authURL)
}

// Callback finishes the redirect flow. On success the browser is sent back
// to the app with the session token in the URL fragment (fragments are not
// transmitted to servers, so the token stays out of access logs).
func (h *AuthHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		h.log.Warn("provider returned error on callback", zap.String("error", errParam))
		c.Redirect(http.StatusFound, h.publicBaseURL+"/?signin=failed")
		return
	}

	state, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != c.Query("state") {
		abortWithError(c, http.StatusBadRequest, "Invalid sign-in state")
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		abortWithError(c, http.StatusBadRequest, "Missing authorization code")
		return
	}

	token, _, err := h.authService.CompleteRedirect(c.Request.Context(), code)
	if err != nil {
		// The redirect flow is expected to fail on stale or replayed
		// callbacks; send the user back to retry rather than erroring hard.
		c.Redirect(http.StatusFound, h.publicBaseURL+"/?signin=failed")
		return
	}

	c.Redirect(http.StatusFound, h.publicBaseURL+"/#token="+token)
}

// SignOut publishes the identity change; the client discards its token.
func (h *AuthHandler) SignOut(c *gin.Context) {
	uid, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	h.authService.SignOut(uid, getUserEmailFromContext(c))
	c.Status(http.StatusNoContent)
}

// Me returns the identity baked into the session token.
func (h *AuthHandler) Me(c *gin.Context) {
	uid, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"uid": uid, "email": getUserEmailFromContext(c)})
}

// Events streams identity-change events over SSE for the session
// presentation layer.
func (h *AuthHandler) Events(c *gin.Context) {
	ch, cancel := h.authService.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("identity", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
