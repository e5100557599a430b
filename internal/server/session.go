package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleLogin starts a demo session for the seeded user.
func (h *httpHandler) handleLogin(c *gin.Context) {
	token, expiresAt, err := h.issuer.Issue(demoUserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	http.SetCookie(c.Writer, h.issuer.SessionCookie(token, expiresAt))
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	http.SetCookie(c.Writer, h.issuer.ClearedCookie())
	c.Redirect(http.StatusFound, "/")
}
