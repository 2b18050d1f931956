package rbac

import (
	"net/http"

	"github.com/saarfitness/gymhub/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleMember = "member"
)

// Role hierarchy: admin > staff > member. The numeric comparison only ever
// runs inside the admin/staff continuum; member sessions live in a separate
// token namespace and are checked by exact match, never by rank.
var hierarchy = map[string]int{
	RoleAdmin:  3,
	RoleStaff:  2,
	RoleMember: 1,
}

func HasRole(userRole, requiredRole string) bool {
	if userRole == "" {
		return false
	}

	return hierarchy[userRole] >= hierarchy[requiredRole]
}

// Result is the uniform guard outcome. Guards never write the response and
// never panic; callers short-circuit on !Authorized and propagate
// Status/Err into the HTTP response themselves.
type Result struct {
	Authorized bool
	Status     int
	Err        string
	Session    *auth.Identity
}

func denied(status int, msg string) Result {
	return Result{Authorized: false, Status: status, Err: msg}
}

func granted(s auth.Identity) Result {
	return Result{Authorized: true, Session: &s}
}

// Guard resolves sessions from the three partition cookies. Each Require*
// grants only from the namespace(s) it is about; admin/staff checks never
// look at the member cookie. RequireMember does peek at the other namespaces,
// but only to tell an unauthenticated caller (401) apart from a staff or
// admin session on a member endpoint (403).
type Guard struct {
	admin  *auth.Manager
	staff  *auth.Manager
	member *auth.Manager
	secure bool // secure cookies (prod)
}

func NewGuard(admin, staff, member *auth.Manager, secure bool) *Guard {
	return &Guard{
		admin:  admin,
		staff:  staff,
		member: member,
		secure: secure,
	}
}

func (g *Guard) sessionFrom(c *gin.Context, m *auth.Manager) (*auth.Claims, bool) {
	raw, err := c.Cookie(m.CookieName())

	if err != nil || raw == "" {
		return nil, false
	}

	claims, err := m.Verify(raw)

	if err != nil {
		return nil, false
	}

	return claims, true
}

// AdminSession resolves only the admin namespace.
func (g *Guard) AdminSession(c *gin.Context) (auth.Identity, bool) {
	if claims, ok := g.sessionFrom(c, g.admin); ok {
		return claims.Session(), true
	}

	return auth.Identity{}, false
}

// StaffSession resolves only the staff namespace.
func (g *Guard) StaffSession(c *gin.Context) (auth.Identity, bool) {
	if claims, ok := g.sessionFrom(c, g.staff); ok {
		return claims.Session(), true
	}

	return auth.Identity{}, false
}

// CurrentSession resolves the admin/staff continuum: the admin namespace is
// tried first, then staff. Member tokens are intentionally invisible here.
func (g *Guard) CurrentSession(c *gin.Context) (auth.Identity, bool) {
	if session, ok := g.AdminSession(c); ok {
		return session, true
	}

	return g.StaffSession(c)
}

// MemberSession resolves only the member namespace. Member sessions slide:
// a token past its update age gets re-minted on the spot, bounded by the
// member TTL.
func (g *Guard) MemberSession(c *gin.Context) (auth.Identity, bool) {
	claims, ok := g.sessionFrom(c, g.member)

	if !ok {
		return auth.Identity{}, false
	}

	if g.member.NeedsRefresh(claims) {
		session := claims.Session()

		token, _, err := g.member.Mint(session)

		if err == nil {
			WriteSessionCookie(c, g.member, token, g.secure)
		}
		// a failed re-mint is not a failed auth, the old token still holds
	}

	return claims.Session(), true
}

func (g *Guard) RequireAdmin(c *gin.Context) Result {
	claims, ok := g.sessionFrom(c, g.admin)

	if !ok {
		return denied(http.StatusUnauthorized, "Unauthorized - Authentication required")
	}

	if claims.Role != RoleAdmin {
		return denied(http.StatusForbidden, "Forbidden - Admin access required")
	}

	return granted(claims.Session())
}

func (g *Guard) RequireStaffOrAdmin(c *gin.Context) Result {
	session, ok := g.CurrentSession(c)

	if !ok {
		return denied(http.StatusUnauthorized, "Unauthorized - Authentication required")
	}

	if !HasRole(session.Role, RoleStaff) {
		return denied(http.StatusForbidden, "Forbidden - Staff or Admin access required")
	}

	return granted(session)
}

func (g *Guard) RequireMember(c *gin.Context) Result {
	session, ok := g.MemberSession(c)

	if !ok {
		// an admin/staff session is authenticated, just in the wrong
		// namespace
		if _, crossed := g.CurrentSession(c); crossed {
			return denied(http.StatusForbidden, "Forbidden - Member access required")
		}

		return denied(http.StatusUnauthorized, "Unauthorized - Authentication required")
	}

	if session.Role != RoleMember {
		return denied(http.StatusForbidden, "Forbidden - Member access required")
	}

	return granted(session)
}

// RequireAuthenticated accepts any of the three namespaces.
func (g *Guard) RequireAuthenticated(c *gin.Context) Result {
	if session, ok := g.CurrentSession(c); ok {
		return granted(session)
	}

	if session, ok := g.MemberSession(c); ok {
		return granted(session)
	}

	return denied(http.StatusUnauthorized, "Unauthorized - Authentication required")
}

// ValidateOwnership lets admin and staff through; a member must own the
// resource.
func ValidateOwnership(session *auth.Identity, resourceOwnerID string) Result {
	if session == nil || session.ID == "" {
		return denied(http.StatusUnauthorized, "Unauthorized")
	}

	if session.Role == RoleAdmin || session.Role == RoleStaff {
		return Result{Authorized: true, Session: session}
	}

	if session.ID != resourceOwnerID {
		return denied(http.StatusForbidden, "Forbidden - You can only access your own data")
	}

	return Result{Authorized: true, Session: session}
}

// WriteSessionCookie sets a partition session cookie the way every partition
// does it: httpOnly, lax, secure in prod, host-wide path.
func WriteSessionCookie(c *gin.Context, m *auth.Manager, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.CookieName(), token, int(m.TTL().Seconds()), "/", "", secure, true)
}

// ClearSessionCookie removes a partition session cookie.
func ClearSessionCookie(c *gin.Context, m *auth.Manager, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.CookieName(), "", -1, "/", "", secure, true)
}
