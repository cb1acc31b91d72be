package middleware

import (
	"net/http"
	"net/http/httptest"
	"time"

	gc "gopkg.in/check.v1"

	"github.com/klaudly/klaudly/internal/ctxkeys"
	"github.com/klaudly/klaudly/internal/service"
)

type authSuite struct {
	identity *service.IdentityService
}

var _ = gc.Suite(&authSuite{})

func (s *authSuite) SetUpTest(c *gc.C) {
	s.identity = service.NewIdentityService("test-secret", time.Hour)
}

// serve runs the request through Authenticate and RequireAuth and reports
// the principal the protected handler saw.
func (s *authSuite) serve(req *http.Request) (*httptest.ResponseRecorder, string) {
	var seen string
	protected := RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.Principal(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	Authenticate(s.identity)(protected).ServeHTTP(rec, req)
	return rec, seen
}

func (s *authSuite) TestValidBearer(c *gc.C) {
	token, err := s.identity.GenerateJWT("alice")
	c.Assert(err, gc.IsNil)

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "bearer "+token)

	rec, principal := s.serve(req)
	c.Check(rec.Code, gc.Equals, http.StatusOK)
	c.Check(principal, gc.Equals, "alice")
}

func (s *authSuite) TestMissingOrInvalidBearer(c *gc.C) {
	for _, header := range []string{"", "Bearer", "Basic YWxpY2U6cHc=", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/entries", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		rec, principal := s.serve(req)
		c.Check(rec.Code, gc.Equals, http.StatusUnauthorized, gc.Commentf("header %q", header))
		c.Check(rec.Body.String(), gc.Equals, `{"error":"Unauthorized"}`+"\n")
		c.Check(principal, gc.Equals, "")
	}
}

type requestIDSuite struct{}

var _ = gc.Suite(&requestIDSuite{})

func (s *requestIDSuite) TestRequestID(c *gc.C) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ctxkeys.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	c.Check(seen, gc.Equals, "abc-123")
	c.Check(rec.Header().Get("X-Request-ID"), gc.Equals, "abc-123")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	c.Check(seen, gc.Matches, "[0-9a-f-]{36}")
	c.Check(rec.Header().Get("X-Request-ID"), gc.Equals, seen)
}

func (s *requestIDSuite) TestChainOrder(c *gc.C) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.NotFoundHandler(), mark("first"), mark("second"), mark("third"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	c.Check(order, gc.DeepEquals, []string{"first", "second", "third"})
}
