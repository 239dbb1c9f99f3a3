package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// errMissingSession is returned by sessionKey when the client did not
// identify its buyer session.
var errMissingSession = errors.New("missing session key")

// sessionKey extracts the buyer session reference from the request.
// The public site generates a random key per browser session and sends
// it on every booking call; holds are owned by this key, never by an
// account.
func sessionKey(c echo.Context) (string, error) {
	if k := c.Request().Header.Get("X-Session-Key"); k != "" {
		return k, nil
	}
	return "", errMissingSession
}

// getUserID extracts the authenticated back-office user ID stored in
// the context by the JWT middleware.  The claim arrives as a JSON
// number (float64) or string depending on how the token was minted.
func getUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	case uint64:
		return v, nil
	}
	return 0, errors.New("no user in context")
}

// parseID parses a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
