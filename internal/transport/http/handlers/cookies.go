package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieWriter sets and clears the auth cookie pair. In production the
// cookies are cross-site (SameSite=None requires Secure); elsewhere Lax
// keeps local HTTP development working.
type CookieWriter struct {
	domain     string
	production bool
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieWriter constructs a cookie writer.
func NewCookieWriter(domain string, production bool, accessTTL, refreshTTL time.Duration) *CookieWriter {
	return &CookieWriter{
		domain:     domain,
		production: production,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (w *CookieWriter) sameSite() http.SameSite {
	if w.production {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetAuthCookies writes both tokens as httpOnly cookies.
func (w *CookieWriter) SetAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	w.write(c, accessTokenCookie, accessToken, int(w.accessTTL.Seconds()))
	w.write(c, refreshTokenCookie, refreshToken, int(w.refreshTTL.Seconds()))
}

// ClearAuthCookies expires both cookies immediately.
func (w *CookieWriter) ClearAuthCookies(c *gin.Context) {
	w.write(c, accessTokenCookie, "", -1)
	w.write(c, refreshTokenCookie, "", -1)
}

func (w *CookieWriter) write(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   w.production,
		SameSite: w.sameSite(),
	})
}
