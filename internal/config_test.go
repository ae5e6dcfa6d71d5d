package internal

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func encodedPublicKey() string {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return base64.StdEncoding.EncodeToString(block)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			AllowedOrigins:    "*",
			ReadHeaderTimeout: time.Second,
			ReadTimeout:       5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			Source:       "file::memory:?cache=shared",
			MaxOpenConns: 2,
			MaxIdleConns: 1,
		},
		Security:    SecurityConfig{JWTPublicKey: encodedPublicKey()},
		DonationAPI: DonationAPIConfig{BaseURL: "http://donations.local/api"},
		Payment:     PaymentConfig{BaseURL: "http://gateway.local", KeyID: "rzp_test", KeySecret: "secret"},
	}
}

var _ = ginkgo.Describe("Config", func() {
	ginkgo.It("accepts a complete configuration", func() {
		gomega.Expect(validConfig().Validate()).To(gomega.Succeed())
	})

	ginkgo.It("reports every broken section at once", func() {
		cfg := validConfig()
		cfg.Database.Driver = "mysql"
		cfg.Payment.KeySecret = ""
		cfg.Security.JWTPublicKey = "not-base64!"

		err := cfg.Validate()
		gomega.Expect(err).To(gomega.HaveOccurred())
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("database config"))
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("payment config"))
		gomega.Expect(err.Error()).To(gomega.ContainSubstring("security config"))
	})

	ginkgo.It("rejects more idle than open connections", func() {
		cfg := validConfig()
		cfg.Database.MaxIdleConns = 5
		gomega.Expect(cfg.Database.Validate()).To(gomega.MatchError(gomega.ContainSubstring("max_idle_conns")))
	})

	ginkgo.It("rejects a read timeout shorter than the header timeout", func() {
		cfg := validConfig()
		cfg.Server.ReadTimeout = 0
		gomega.Expect(cfg.Server.Validate()).To(gomega.HaveOccurred())
	})

	ginkgo.It("falls back to defaults when the environment is empty", func() {
		ginkgo.GinkgoT().Setenv("PAYMENT_CURRENCY", "")
		ginkgo.GinkgoT().Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

		cfg := LoadConfigFromEnv()
		gomega.Expect(cfg.Payment.Currency).To(gomega.Equal("INR"))
		gomega.Expect(cfg.Database.MaxOpenConns).To(gomega.Equal(10))
		gomega.Expect(cfg.Payment.CheckoutTimeout).To(gomega.Equal(15 * time.Minute))
	})
})

var _ = ginkgo.Describe("AppError", func() {
	ginkgo.It("flattens validation details by field", func() {
		err := NewValidationError("Validation failed", ErrCodeValidationFailed).
			WithDetails(ValidationErrors{Errors: []ValidationError{
				{Field: "email", Message: "first"},
				{Field: "email", Message: "second"},
				{Field: "phone", Message: "bad phone"},
			}})

		gomega.Expect(FieldMessages(err)).To(gomega.Equal(map[string]string{
			"email": "first",
			"phone": "bad phone",
		}))
		gomega.Expect(err.Error()).To(gomega.Equal("first"))
	})

	ginkgo.It("is found through wrapping", func() {
		wrapped := stderrors.Join(stderrors.New("context"), ErrCampaignNotFound)
		appErr, ok := IsAppError(wrapped)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(appErr.StatusCode).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("keeps the cause out of the response body", func() {
		appErr := NewInternalError("Internal server error", stderrors.New("db down"))
		status, body := appErr.ToHTTPResponse()
		gomega.Expect(status).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(body).To(gomega.Equal(Response{Error: appErr}))
		gomega.Expect(stderrors.Unwrap(appErr)).To(gomega.MatchError("db down"))
	})
})
