package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionHeader = "X-Session-ID"

const sessionCookieMaxAge = 7 * 24 * 60 * 60

// sessionID returns the caller's session id, issuing a new cookie when the
// request carries no valid one. API clients may send the id as a header.
func sessionID(c *gin.Context, cookieName string) string {
	if id := c.GetHeader(sessionHeader); validSessionID(id) {
		return id
	}
	if id, err := c.Cookie(cookieName); err == nil && validSessionID(id) {
		return id
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookieName, id, sessionCookieMaxAge, "/", "", false, true)
	c.Header(sessionHeader, id)
	return id
}

func validSessionID(id string) bool {
	if id == "" {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
