package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/saarfitness/gymhub/internal/rbac"
	"github.com/gin-gonic/gin"
)

// Role home pages. A correctly-authenticated user in the wrong area is sent
// to their own home rather than dead-ended on a 403 page.
const (
	adminHome  = "/admin"
	staffHome  = "/dashboard"
	memberHome = "/member"

	adminLogin  = "/admin/login"
	staffLogin  = "/login"
	memberLogin = "/member/login"
)

var publicPaths = map[string]struct{}{
	"/":             {},
	"/login":        {},
	"/admin/login":  {},
	"/member/login": {},
	"/unauthorized": {},
	"/health":       {},
	"/metrics":      {},
}

var publicPrefixes = []string{
	"/api/auth/",
	"/static/",
	"/favicon",
}

func isPublic(path string) bool {
	if _, ok := publicPaths[path]; ok {
		return true
	}

	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}

func isAPI(path string) bool {
	return strings.HasPrefix(path, "/api/")
}

// EdgeGate is the pre-handler gate. It inspects the path prefix, resolves
// only the token namespace(s) that prefix cares about, and either passes the
// request through, redirects a browser navigation, or answers an API call
// with 401/403 JSON. Handlers behind it still run their own fine-grained
// guard; this gate is the coarse first pass.
func EdgeGate(guard *rbac.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if isPublic(path) {
			c.Next()
			return
		}

		switch {
		case strings.HasPrefix(path, "/admin"):
			gateAdmin(c, guard, path)
		case strings.HasPrefix(path, "/dashboard"):
			gateStaff(c, guard, path)
		case strings.HasPrefix(path, "/member"):
			gateMember(c, guard, path)
		case strings.HasPrefix(path, "/api/admin/"):
			gateAPI(c, guard.RequireAdmin(c))
		case strings.HasPrefix(path, "/api/member/"):
			gateAPI(c, guard.RequireMember(c))
		case strings.HasPrefix(path, "/api/photos/"):
			gateAPI(c, guard.RequireAuthenticated(c))
		case isAPI(path):
			gateAPI(c, guard.RequireStaffOrAdmin(c))
		default:
			c.Next()
		}
	}
}

// gateAdmin: /admin/* pages need an admin session.
func gateAdmin(c *gin.Context, guard *rbac.Guard, path string) {
	res := guard.RequireAdmin(c)

	if res.Authorized {
		c.Next()
		return
	}

	// A wrong-area session gets routed home instead of to a login page.
	if home, ok := roleHome(c, guard); ok {
		redirect(c, home)
		return
	}

	redirectToLogin(c, adminLogin, path)
}

// gateStaff: /dashboard/* pages accept staff or admin.
func gateStaff(c *gin.Context, guard *rbac.Guard, path string) {
	res := guard.RequireStaffOrAdmin(c)

	if res.Authorized {
		c.Next()
		return
	}

	if home, ok := roleHome(c, guard); ok {
		redirect(c, home)
		return
	}

	redirectToLogin(c, staffLogin, path)
}

// gateMember: /member/* pages need a member session.
func gateMember(c *gin.Context, guard *rbac.Guard, path string) {
	res := guard.RequireMember(c)

	if res.Authorized {
		c.Next()
		return
	}

	if home, ok := roleHome(c, guard); ok {
		redirect(c, home)
		return
	}

	redirectToLogin(c, memberLogin, path)
}

// gateAPI turns a guard result into a JSON outcome. API calls never redirect.
func gateAPI(c *gin.Context, res rbac.Result) {
	if res.Authorized {
		c.Next()
		return
	}

	c.AbortWithStatusJSON(res.Status, gin.H{
		"ok":    false,
		"error": res.Err,
	})
}

// roleHome resolves any valid session the browser carries and returns that
// role's home page.
func roleHome(c *gin.Context, guard *rbac.Guard) (string, bool) {
	if session, ok := guard.CurrentSession(c); ok {
		if session.Role == rbac.RoleAdmin {
			return adminHome, true
		}
		return staffHome, true
	}

	if _, ok := guard.MemberSession(c); ok {
		return memberHome, true
	}

	return "", false
}

func redirectToLogin(c *gin.Context, login, callback string) {
	target := login + "?callbackUrl=" + url.QueryEscape(callback)
	redirect(c, target)
}

func redirect(c *gin.Context, target string) {
	c.Redirect(http.StatusTemporaryRedirect, target)
	c.Abort()
}
