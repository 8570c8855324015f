// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sessiond Contributors

package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/sessiond/sessiond/internal/apperror"
	"github.com/sessiond/sessiond/internal/auth"
	"github.com/sessiond/sessiond/internal/auth/authtest"
	authredis "github.com/sessiond/sessiond/internal/auth/redis"
	"github.com/sessiond/sessiond/internal/httpapi"
)

type apiResult struct {
	Status int
	Resp   auth.Response
	Err    apperror.Record
}

type apiClient struct {
	baseURL string
}

func (c apiClient) call(method, path, token string, body any) apiResult {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	Expect(err).NotTo(HaveOccurred())

	out := apiResult{Status: res.StatusCode}
	if res.StatusCode == http.StatusOK {
		Expect(json.Unmarshal(raw, &out.Resp)).To(Succeed(), string(raw))
	} else {
		var envelope struct {
			Error apperror.Record `json:"error"`
		}
		Expect(json.Unmarshal(raw, &envelope)).To(Succeed(), string(raw))
		out.Err = envelope.Error
	}
	return out
}

func creds(email, password string) map[string]string {
	return map[string]string{"email": email, "password": password}
}

var _ = Describe("sessiond HTTP API", func() {
	var (
		mr     *miniredis.Miniredis
		server *httptest.Server
		api    apiClient
	)

	BeforeEach(func() {
		var err error
		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		tokens, err := auth.NewJWTCodec([]byte("e2e-secret"))
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		svc, err := auth.NewService(
			authtest.NewIdentityRepository(),
			authredis.NewSessionStore(client, time.Second),
			auth.NewBcryptHasher(bcrypt.MinCost),
			tokens,
			auth.WithLogger(logger),
		)
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(httpapi.NewRouter(httpapi.Deps{Auth: svc, Logger: logger}))
		api = apiClient{baseURL: server.URL}
	})

	AfterEach(func() {
		server.Close()
		mr.Close()
	})

	signupAndLogin := func(email, password string) string {
		Expect(api.call(http.MethodPost, "/api/signup", "", creds(email, password)).Status).To(Equal(http.StatusOK))
		res := api.call(http.MethodPost, "/api/login", "", creds(email, password))
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(res.Resp.Token).NotTo(BeEmpty())
		return res.Resp.Token
	}

	It("runs signup, login, query, logout and rejects the old token", func() {
		res := api.call(http.MethodPost, "/api/signup", "", creds("ada@example.com", "correct horse"))
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(res.Resp.Status).To(Equal("200"))
		Expect(res.Resp.Message).To(Equal("User created with email ada@example.com"))

		res = api.call(http.MethodPost, "/api/login", "", creds("ada@example.com", "correct horse"))
		Expect(res.Status).To(Equal(http.StatusOK))
		token := res.Resp.Token
		Expect(token).NotTo(BeEmpty())
		Expect(mr.Exists("session:ada@example.com")).To(BeTrue())

		res = api.call(http.MethodGet, "/api/users", token, nil)
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(res.Resp.Data).To(HaveLen(1))
		Expect(res.Resp.Data[0].Email).To(Equal("ada@example.com"))

		raw, err := json.Marshal(res.Resp.Data[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring("password"))

		res = api.call(http.MethodPost, "/api/logout", token, nil)
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(res.Resp.Message).To(Equal("Logout successful"))

		res = api.call(http.MethodGet, "/api/users", token, nil)
		Expect(res.Status).To(Equal(http.StatusUnauthorized))
		Expect(res.Err.Code).To(Equal(apperror.CodeForbidden))
	})

	It("rejects a wrong password without naming a field", func() {
		signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/login", "", creds("ada@example.com", "battery staple"))
		Expect(res.Status).To(Equal(http.StatusBadRequest))
		Expect(res.Err.Code).To(Equal(apperror.CodeBadUserInput))
		Expect(res.Err.Field).To(BeEmpty())
	})

	It("answers an unknown email exactly like a wrong password", func() {
		res := api.call(http.MethodPost, "/api/login", "", creds("ghost@example.com", "whatever"))
		Expect(res.Status).To(Equal(http.StatusBadRequest))
		Expect(res.Err).To(Equal(apperror.BadUserInput("").Record()))
	})

	It("rejects a duplicate signup on the email field", func() {
		signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/signup", "", creds("ada@example.com", "another"))
		Expect(res.Status).To(Equal(http.StatusConflict))
		Expect(res.Err.Code).To(Equal(apperror.CodeDuplicateEntry))
		Expect(res.Err.Field).To(Equal("email"))
	})

	It("invalidates the first token when the same account logs in again", func() {
		first := signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/login", "", creds("ada@example.com", "correct horse"))
		Expect(res.Status).To(Equal(http.StatusOK))
		second := res.Resp.Token

		Expect(api.call(http.MethodGet, "/api/users", first, nil).Status).To(Equal(http.StatusUnauthorized))
		Expect(api.call(http.MethodGet, "/api/users", second, nil).Status).To(Equal(http.StatusOK))
	})

	It("refuses to log in while already authenticated", func() {
		token := signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/login", token, creds("ada@example.com", "correct horse"))
		Expect(res.Status).To(Equal(http.StatusConflict))
		Expect(res.Err.Code).To(Equal(apperror.CodeAlreadyAuthenticated))
	})

	It("moves the session when the email changes", func() {
		token := signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/email", token, map[string]string{"email": "lovelace@example.com"})
		Expect(res.Status).To(Equal(http.StatusOK))
		newToken := res.Resp.Token
		Expect(newToken).NotTo(BeEmpty())

		Expect(mr.Exists("session:ada@example.com")).To(BeFalse())
		Expect(mr.Exists("session:lovelace@example.com")).To(BeTrue())
		Expect(api.call(http.MethodGet, "/api/users", token, nil).Status).To(Equal(http.StatusUnauthorized))
		Expect(api.call(http.MethodGet, "/api/users", newToken, nil).Status).To(Equal(http.StatusOK))

		res = api.call(http.MethodPost, "/api/login", "", creds("lovelace@example.com", "correct horse"))
		Expect(res.Status).To(Equal(http.StatusOK))
	})

	It("changes the password and keeps the session", func() {
		token := signupAndLogin("ada@example.com", "correct horse")

		res := api.call(http.MethodPost, "/api/password", token,
			map[string]string{"oldPassword": "wrong", "newPassword": "battery staple"})
		Expect(res.Status).To(Equal(http.StatusBadRequest))
		Expect(res.Err.Field).To(Equal("oldPassword"))

		res = api.call(http.MethodPost, "/api/password", token,
			map[string]string{"oldPassword": "correct horse", "newPassword": "battery staple"})
		Expect(res.Status).To(Equal(http.StatusOK))
		Expect(api.call(http.MethodGet, "/api/users", token, nil).Status).To(Equal(http.StatusOK))

		Expect(api.call(http.MethodPost, "/api/logout", token, nil).Status).To(Equal(http.StatusOK))
		Expect(api.call(http.MethodPost, "/api/login", "", creds("ada@example.com", "battery staple")).Status).
			To(Equal(http.StatusOK))
	})

	It("rejects logout with a garbage token as TOKEN_INVALID", func() {
		res := api.call(http.MethodPost, "/api/logout", "not-a-jwt", nil)
		Expect(res.Status).To(Equal(http.StatusUnauthorized))
		Expect(res.Err.Code).To(Equal(apperror.CodeTokenInvalid))
	})

	It("expires sessions with the binding TTL", func() {
		token := signupAndLogin("ada@example.com", "correct horse")
		Expect(mr.TTL("session:ada@example.com")).To(Equal(auth.DefaultTokenTTL))

		mr.FastForward(auth.DefaultTokenTTL + time.Second)
		Expect(api.call(http.MethodGet, "/api/users", token, nil).Status).To(Equal(http.StatusUnauthorized))
	})

	It("reports a Redis outage as an internal error", func() {
		token := signupAndLogin("ada@example.com", "correct horse")
		mr.SetError("ERR injected failure")

		res := api.call(http.MethodGet, "/api/users", token, nil)
		Expect(res.Status).To(Equal(http.StatusInternalServerError))
		Expect(res.Err.Code).To(Equal(apperror.CodeInternal))
		Expect(res.Err.Message).To(Equal(apperror.CodeInternal.Message()))
	})
})
