package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/tubetrack/internal/models"
	"github.com/desertthunder/tubetrack/internal/server"
	"github.com/desertthunder/tubetrack/internal/shared"
)

// Google endpoints.
var (
	GoogleEndpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/auth",
		TokenURL:  "https://oauth2.googleapis.com/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

const defaultLoginTimeout = 2 * time.Minute

// GoogleLogin runs the browser sign-in flow.
type GoogleLogin struct {
	Config      shared.GoogleConfig
	Server      shared.ServerConfig
	Endpoint    oauth2.Endpoint
	UserInfoURL string
	// Open launches the browser; defaults to [shared.OpenBrowser].
	Open    func(url string) error
	Out     io.Writer
	Timeout time.Duration
	Logger  *log.Logger
}

// NewGoogleLogin creates a [GoogleLogin] against Google's production endpoints.
func NewGoogleLogin(cfg *shared.Config, out io.Writer, logger *log.Logger) *GoogleLogin {
	return &GoogleLogin{
		Config:      cfg.Auth.Google,
		Server:      cfg.Server,
		Endpoint:    GoogleEndpoint,
		UserInfoURL: GoogleUserInfoURL,
		Open:        shared.OpenBrowser,
		Out:         out,
		Timeout:     defaultLoginTimeout,
		Logger:      logger,
	}
}

type userInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Run opens the consent page, waits for the callback and resolves the account.
func (g *GoogleLogin) Run(ctx context.Context) (models.Identity, error) {
	if g.Config.ClientID == "" {
		return models.Identity{}, fmt.Errorf("%w: auth.google.client_id", shared.ErrMissingCredentials)
	}

	conf := &oauth2.Config{
		ClientID:     g.Config.ClientID,
		ClientSecret: g.Config.ClientSecret,
		RedirectURL:  g.Config.RedirectURI,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     g.Endpoint,
	}

	state := shared.GenerateID()
	verifier := oauth2.GenerateVerifier()
	handler := server.NewOAuthHandler(conf, state, oauth2.VerifierOption(verifier))

	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(g.Logger))
	router.Handler(handler)

	addr := net.JoinHostPort(g.Server.Host, strconv.Itoa(g.Server.Port))
	srv, err := server.Listen(addr, router, g.Logger)
	if err != nil {
		return models.Identity{}, err
	}
	defer srv.Shutdown(context.Background())

	if conf.RedirectURL == "" {
		conf.RedirectURL = srv.URL(server.CallbackPath)
	}
	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	g.printf("→ Opening browser for Google sign-in...\n")
	open := g.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	if err := open(authURL); err != nil {
		g.Logger.Warnf("failed to open browser automatically %v", err)
		g.printf("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = defaultLoginTimeout
	}
	g.printf("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-srv.Errors():
		return models.Identity{}, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return models.Identity{}, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return models.Identity{}, ctx.Err()
	}

	if result.Error() != nil {
		return models.Identity{}, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return models.Identity{}, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return g.identity(ctx, conf, result.Token)
}

func (g *GoogleLogin) identity(ctx context.Context, conf *oauth2.Config, token *oauth2.Token) (models.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return models.Identity{}, err
	}
	resp, err := conf.Client(ctx, token).Do(req)
	if err != nil {
		return models.Identity{}, fmt.Errorf("%w: userinfo: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Identity{}, fmt.Errorf("%w: userinfo status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Identity{}, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return models.Identity{}, fmt.Errorf("%w: userinfo has no subject", shared.ErrAuthFailed)
	}

	return models.Identity{UserID: info.Sub, Email: info.Email, DisplayName: info.Name, PhotoURL: info.Picture}, nil
}

func (g *GoogleLogin) printf(format string, args ...any) {
	if g.Out != nil {
		fmt.Fprintf(g.Out, format, args...)
	}
}
