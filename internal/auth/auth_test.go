package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	apperrors "github.com/frahmantamala/donation-checkout/internal"
	"github.com/frahmantamala/donation-checkout/internal/core/datamodel/donation"
)

func signToken(key *rsa.PrivateKey, claims Claims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return signed
}

type stubFetcher struct {
	profile *donation.Profile
	err     error
}

func (s *stubFetcher) GetProfile(ctx context.Context) (*donation.Profile, error) {
	return s.profile, s.err
}

var _ = ginkgo.Describe("Auth", func() {
	var (
		key      *rsa.PrivateKey
		verifier *TokenVerifier
		logger   *slog.Logger
		claims   Claims
	)

	ginkgo.BeforeEach(func() {
		var err error
		key, err = rsa.GenerateKey(rand.Reader, 2048)
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		verifier = NewTokenVerifier(&key.PublicKey)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		claims = Claims{
			UserID:    "user-1",
			Email:     "asha@example.com",
			FirstName: "Asha",
			LastName:  "Rao",
			Phone:     "9876543210",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now()),
			},
		}
	})

	ginkgo.Describe("TokenVerifier", func() {
		ginkgo.It("accepts a valid RS256 token", func() {
			got, err := verifier.Verify(signToken(key, claims))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(got.Identity()).To(gomega.Equal("user-1"))
			gomega.Expect(got.FirstName).To(gomega.Equal("Asha"))
		})

		ginkgo.It("falls back to the subject claim", func() {
			claims.UserID = ""
			claims.Subject = "sub-7"
			got, err := verifier.Verify(signToken(key, claims))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(got.Identity()).To(gomega.Equal("sub-7"))
		})

		ginkgo.It("reports expired tokens", func() {
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			_, err := verifier.Verify(signToken(key, claims))
			gomega.Expect(errors.Is(err, apperrors.ErrTokenExpired)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects tokens signed by another key", func() {
			other, err := rsa.GenerateKey(rand.Reader, 2048)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = verifier.Verify(signToken(other, claims))
			gomega.Expect(errors.Is(err, apperrors.ErrInvalidToken)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects HMAC tokens", func() {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, err := token.SignedString([]byte("shared"))
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = verifier.Verify(signed)
			gomega.Expect(errors.Is(err, apperrors.ErrInvalidToken)).To(gomega.BeTrue())
		})

		ginkgo.It("rejects tokens without an identity", func() {
			claims.UserID = ""
			_, err := verifier.Verify(signToken(key, claims))
			gomega.Expect(errors.Is(err, apperrors.ErrInvalidToken)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("Middleware", func() {
		var (
			reached *http.Request
			handler http.Handler
		)

		ginkgo.BeforeEach(func() {
			reached = nil
			handler = NewMiddleware(verifier, logger).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = r
				w.WriteHeader(http.StatusNoContent)
			}))
		})

		ginkgo.It("puts the identity and token into the context", func() {
			token := signToken(key, claims)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/history", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(apperrors.UserIDFromContext(reached.Context())).To(gomega.Equal("user-1"))
			gomega.Expect(apperrors.TokenFromContext(reached.Context())).To(gomega.Equal(token))
			got, ok := ClaimsFromContext(reached.Context())
			gomega.Expect(ok).To(gomega.BeTrue())
			gomega.Expect(got.Email).To(gomega.Equal("asha@example.com"))
		})

		ginkgo.It("returns 401 without a bearer token", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/history", nil)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reached).To(gomega.BeNil())
		})

		ginkgo.It("returns 401 for an expired token", func() {
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			req := httptest.NewRequest(http.MethodGet, "/api/v1/donations/history", nil)
			req.Header.Set("Authorization", "Bearer "+signToken(key, claims))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("TOKEN_EXPIRED"))
		})
	})

	ginkgo.Describe("Profile providers", func() {
		var ctx context.Context

		ginkgo.BeforeEach(func() {
			c := claims
			ctx = ContextWithClaims(context.Background(), &c)
		})

		ginkgo.It("builds the profile from the token claims", func() {
			profile, err := ClaimsProfileProvider{}.CurrentProfile(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(profile.Email).To(gomega.Equal("asha@example.com"))
			gomega.Expect(profile.Phone).To(gomega.Equal("9876543210"))
		})

		ginkgo.It("fails without claims", func() {
			_, err := ClaimsProfileProvider{}.CurrentProfile(context.Background())
			gomega.Expect(err).To(gomega.MatchError(ErrNoIdentity))
		})

		ginkgo.It("prefers the remote profile", func() {
			remote := &stubFetcher{profile: &donation.Profile{FirstName: "Remote"}}
			profile, err := NewFallbackProfileProvider(remote, logger).CurrentProfile(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(profile.FirstName).To(gomega.Equal("Remote"))
		})

		ginkgo.It("falls back to the claims when the remote lookup fails", func() {
			remote := &stubFetcher{err: errors.New("upstream down")}
			profile, err := NewFallbackProfileProvider(remote, logger).CurrentProfile(ctx)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(profile.FirstName).To(gomega.Equal("Asha"))
		})
	})
})
