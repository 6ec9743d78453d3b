package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/cppla/studytutor/config"
	"github.com/cppla/studytutor/middleware"
	"github.com/cppla/studytutor/models"
	"github.com/cppla/studytutor/services"
	"github.com/cppla/studytutor/utils"
)

// AuthController handles authentication related endpoints including local and third-party providers.
type AuthController struct {
	accounts  *services.Accounts
	tokens    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
	sessions  *utils.SessionStore
	states    *utils.OAuthStateStore
	cfg       config.AppConfig
}

// NewAuthController wires the auth endpoints. sessions may be nil.
func NewAuthController(accounts *services.Accounts, tokens *utils.TokenIssuer, blacklist *utils.TokenBlacklist,
	sessions *utils.SessionStore, states *utils.OAuthStateStore, cfg config.AppConfig) *AuthController {
	return &AuthController{
		accounts:  accounts,
		tokens:    tokens,
		blacklist: blacklist,
		sessions:  sessions,
		states:    states,
		cfg:       cfg,
	}
}

// Register creates a local account and signs it in.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.accounts.Register(ctx.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID)
	a.signIn(ctx, user, http.StatusCreated)
}

// Login verifies user credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	user, err := a.accounts.Authenticate(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.signIn(ctx, user, http.StatusOK)
}

// Logout revokes the bearer token until it expires and clears the cookie session.
func (a *AuthController) Logout(ctx *gin.Context) {
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		claims := v.(*utils.Claims)
		token := ctx.GetString(middleware.ContextTokenKey)
		expiresAt := time.Now().Add(a.tokens.TTL())
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt)
	}
	if err := a.sessions.Clear(ctx.Writer, ctx.Request); err != nil {
		utils.Sugar.Warnf("clear session cookie failed: %v", err)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	user, err := a.accounts.Get(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, userResponse(*user))
}

// OAuthRedirect generates a provider-specific authorization URL.
func (a *AuthController) OAuthRedirect(ctx *gin.Context) {
	cfg, err := a.oauthConfig(ctx.Param("provider"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	state, err := a.states.Issue(ctx.Request.Context())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create oauth state")
		return
	}
	utils.Success(ctx, gin.H{"authorization_url": cfg.AuthCodeURL(state), "state": state})
}

// OAuthCallback exchanges the authorization code for a user identity and issues a JWT.
func (a *AuthController) OAuthCallback(ctx *gin.Context) {
	provider := strings.ToLower(ctx.Param("provider"))
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" || state == "" {
		utils.Error(ctx, http.StatusBadRequest, 40005, "missing code or state")
		return
	}
	if !a.states.Consume(ctx.Request.Context(), state) {
		utils.Error(ctx, http.StatusBadRequest, 40006, "invalid or expired state")
		return
	}

	cfg, err := a.oauthConfig(provider)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 15*time.Second)
	defer cancel()
	token, err := cfg.Exchange(reqCtx, code)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40007, "failed to exchange code")
		return
	}

	identity, err := fetchIdentity(reqCtx, cfg, provider, token)
	if err != nil {
		utils.Logger.Warn("oauth profile fetch failed", zap.String("provider", provider), zap.Error(err))
		utils.Error(ctx, http.StatusBadGateway, 50205, "failed to fetch provider profile")
		return
	}

	user, err := a.accounts.FindOrCreateExternal(ctx.Request.Context(), *identity)
	if err != nil {
		respondError(ctx, err)
		return
	}
	a.signIn(ctx, user, http.StatusOK)
}

func (a *AuthController) signIn(ctx *gin.Context, user *models.User, status int) {
	token, expiresAt, err := a.tokens.Generate(user.ID, user.Email)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	if err := a.sessions.Save(ctx.Writer, ctx.Request, user.ID); err != nil {
		utils.Sugar.Warnf("save session cookie failed: %v", err)
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       userResponse(*user),
	})
}

func (a *AuthController) oauthConfig(provider string) (*oauth2.Config, error) {
	base := strings.TrimRight(a.cfg.OAuthRedirectBase, "/")
	switch strings.ToLower(provider) {
	case "github":
		if a.cfg.GitHubClientID == "" || a.cfg.GitHubClientSecret == "" {
			return nil, fmt.Errorf("github oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     a.cfg.GitHubClientID,
			ClientSecret: a.cfg.GitHubClientSecret,
			RedirectURL:  base + "/api/v1/auth/oauth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}, nil
	case "google":
		if a.cfg.GoogleClientID == "" || a.cfg.GoogleClientSecret == "" {
			return nil, fmt.Errorf("google oauth not configured")
		}
		return &oauth2.Config{
			ClientID:     a.cfg.GoogleClientID,
			ClientSecret: a.cfg.GoogleClientSecret,
			RedirectURL:  base + "/api/v1/auth/oauth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchIdentity(ctx context.Context, cfg *oauth2.Config, provider string, token *oauth2.Token) (*services.ExternalIdentity, error) {
	client := cfg.Client(ctx, token)
	switch provider {
	case "github":
		return fetchGitHubIdentity(ctx, client)
	case "google":
		return fetchGoogleIdentity(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func fetchGitHubIdentity(ctx context.Context, client *http.Client) (*services.ExternalIdentity, error) {
	var payload struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}
	email := payload.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}
	name := payload.Name
	if name == "" {
		name = payload.Login
	}
	return &services.ExternalIdentity{
		Provider:   "github",
		ProviderID: fmt.Sprintf("%d", payload.ID),
		Email:      email,
		Name:       name,
	}, nil
}

func fetchGoogleIdentity(ctx context.Context, client *http.Client) (*services.ExternalIdentity, error) {
	var payload struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	email := payload.Email
	if !payload.VerifiedEmail {
		email = ""
	}
	return &services.ExternalIdentity{
		Provider:   "google",
		ProviderID: payload.ID,
		Email:      email,
		Name:       payload.Name,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":                 user.ID,
		"email":              user.Email,
		"name":               user.Name,
		"provider":           user.Provider,
		"study_streak":       user.StudyStreak,
		"longest_streak":     user.LongestStreak,
		"total_study_time":   user.TotalStudyTime,
		"last_study_session": user.LastStudySession,
		"created_at":         user.CreatedAt,
	}
}
