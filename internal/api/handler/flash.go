package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/api/view"
)

const (
	flashCookie  = "portal_flash"
	flashSuccess = "success"
	flashError   = "error"
)

// setFlash stores a one-shot message that the next rendered page shows.
func setFlash(c echo.Context, kind, msg string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads and clears the flash cookie.
func takeFlash(c echo.Context) view.Flash {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return view.Flash{}
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return view.Flash{}
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok {
		return view.Flash{}
	}
	switch kind {
	case flashSuccess:
		return view.Flash{Success: msg}
	case flashError:
		return view.Flash{Error: msg}
	}
	return view.Flash{}
}
