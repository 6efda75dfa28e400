package ghclient

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v68/github"

	"github.com/ralphcore/ralph/internal/config"
	"github.com/ralphcore/ralph/internal/tunables"
)

// installationTokenSource mints and caches GitHub App installation tokens,
// coalescing concurrent refreshes behind a single in-flight request so a
// burst of callers never triggers more than one token mint.
type installationTokenSource struct {
	appID          int64
	installationID int64
	privateKeyPath string
	apiBaseURL     string

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	inFlight  chan struct{}
}

func newInstallationTokenSource(cfg config.GitHubConfig, apiBaseURL string) (*installationTokenSource, error) {
	return &installationTokenSource{
		appID:          cfg.AppID,
		installationID: cfg.InstallationID,
		privateKeyPath: cfg.PrivateKeyPath,
		apiBaseURL:     apiBaseURL,
	}, nil
}

// Token returns a valid installation access token, refreshing it if the
// cached one is within tunables.InstallationTokenRefreshSkew of expiry.
func (s *installationTokenSource) Token() (string, error) {
	s.mu.Lock()
	if s.token != "" && time.Until(s.expiresAt) > tunables.InstallationTokenRefreshSkew {
		tok := s.token
		s.mu.Unlock()
		return tok, nil
	}
	if s.inFlight != nil {
		ch := s.inFlight
		s.mu.Unlock()
		<-ch
		s.mu.Lock()
		tok := s.token
		s.mu.Unlock()
		if tok == "" {
			return "", fmt.Errorf("ghclient: installation token refresh failed")
		}
		return tok, nil
	}
	ch := make(chan struct{})
	s.inFlight = ch
	s.mu.Unlock()

	tok, exp, err := s.mint()

	s.mu.Lock()
	if err == nil {
		s.token = tok
		s.expiresAt = exp
	}
	s.inFlight = nil
	s.mu.Unlock()
	close(ch)

	if err != nil {
		return "", err
	}
	return tok, nil
}

func (s *installationTokenSource) mint() (string, time.Time, error) {
	keyBytes, err := os.ReadFile(s.privateKeyPath)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading app private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parsing app private key: %w", err)
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    fmt.Sprintf("%d", s.appID),
		IssuedAt:  jwt.NewNumericDate(now.Add(-tunables.InstallationJWTBackdate)),
		ExpiresAt: jwt.NewNumericDate(now.Add(tunables.InstallationJWTLifetime)),
	}
	appJWT, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing app jwt: %w", err)
	}

	gh := github.NewClient(nil).WithAuthToken(appJWT)
	if s.apiBaseURL != "" && s.apiBaseURL != "https://api.github.com/" {
		var err error
		gh, err = gh.WithEnterpriseURLs(s.apiBaseURL, s.apiBaseURL)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("configuring enterprise urls for app auth: %w", err)
		}
	}

	it, _, err := gh.Apps.CreateInstallationToken(bgCtx(), s.installationID, nil)
	if err != nil {
		return "", time.Time{}, Classify(err)
	}
	return it.GetToken(), it.GetExpiresAt().Time.UTC(), nil
}

// installationRoundTripper re-fetches the installation token per request
// from the cached source, so a mid-flight refresh never races a request.
type installationRoundTripper struct {
	src  *installationTokenSource
	next http.RoundTripper
}

func (t *installationRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.src.Token()
	if err != nil {
		return nil, err
	}
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+tok)
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
