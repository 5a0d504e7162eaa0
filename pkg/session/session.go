// Package session owns the signed-in account and the Graph client bound to it.
//
// Sign-in and sign-out only happen when a caller asks for them. Credentials are
// created with automatic authentication disabled, so an expired or missing
// token surfaces as an error instead of a surprise browser window.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/pkg/browser"

	"github.com/praetorian-inc/msinfo/internal/message"
	"github.com/praetorian-inc/msinfo/pkg/graph"
)

type Flow string

const (
	FlowBrowser    Flow = "browser"
	FlowDeviceCode Flow = "device_code"
)

var (
	// LoginScopes are requested during interactive sign-in.
	LoginScopes = []string{
		"https://graph.microsoft.com/User.Read",
		"https://graph.microsoft.com/Application.Read.All",
	}

	ErrSignInInProgress = errors.New("sign-in already in progress")
	ErrNotSignedIn      = errors.New("not signed in")
)

// Authenticator is a credential that can run an interactive sign-in and then
// serve tokens for the account it signed in.
type Authenticator interface {
	azcore.TokenCredential
	Authenticate(ctx context.Context, opts *policy.TokenRequestOptions) (azidentity.AuthenticationRecord, error)
}

// Account identifies the signed-in user.
type Account struct {
	HomeAccountID string `json:"homeAccountId"`
	Username      string `json:"username"`
	TenantID      string `json:"tenantId"`
	Authority     string `json:"authority"`
}

type Options struct {
	ClientID    string
	TenantID    string
	RedirectURL string
	Flow        Flow
	Logger      *slog.Logger
}

// Manager tracks at most one account. It is safe for concurrent use.
type Manager struct {
	opts   Options
	logger *slog.Logger

	signingIn atomic.Bool

	mu      sync.RWMutex
	account *Account
	cred    Authenticator
	client  *graph.Client

	newCredential func() (Authenticator, error)
	newGraph      func(cred azcore.TokenCredential, scopes []string) (*graph.Client, error)
	openURL       func(string) error
}

func New(opts Options) *Manager {
	if opts.Flow == "" {
		opts.Flow = FlowBrowser
	}
	if opts.TenantID == "" {
		opts.TenantID = "organizations"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// browser launches echo to stdout, which is the protocol stream when
	// running as an MCP server
	browser.Stdout = io.Discard

	m := &Manager{
		opts:     opts,
		logger:   logger,
		newGraph: graph.NewClient,
		openURL:  browser.OpenURL,
	}
	m.newCredential = m.credential
	return m
}

func (m *Manager) credential() (Authenticator, error) {
	switch m.opts.Flow {
	case FlowDeviceCode:
		cred, err := azidentity.NewDeviceCodeCredential(&azidentity.DeviceCodeCredentialOptions{
			ClientID:                       m.opts.ClientID,
			TenantID:                       m.opts.TenantID,
			DisableAutomaticAuthentication: true,
			UserPrompt: func(ctx context.Context, dc azidentity.DeviceCodeMessage) error {
				message.Warning("%s", dc.Message)
				return nil
			},
		})
		if err != nil {
			return nil, err
		}
		return cred, nil
	default:
		cred, err := azidentity.NewInteractiveBrowserCredential(&azidentity.InteractiveBrowserCredentialOptions{
			ClientID:                       m.opts.ClientID,
			TenantID:                       m.opts.TenantID,
			RedirectURL:                    m.opts.RedirectURL,
			DisableAutomaticAuthentication: true,
		})
		if err != nil {
			return nil, err
		}
		return cred, nil
	}
}

// CurrentAccount returns the signed-in account, or nil.
func (m *Manager) CurrentAccount() *Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.account == nil {
		return nil
	}
	acct := *m.account
	return &acct
}

func (m *Manager) SignedIn() bool {
	return m.CurrentAccount() != nil
}

// Graph returns the client bound to the current account. It is nil when
// signed out; every query on a nil client fails with graph.ErrUninitialized.
func (m *Manager) Graph() *graph.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// SignIn runs the interactive sign-in. On success the previous credential and
// Graph client are replaced. On failure nothing changes.
func (m *Manager) SignIn(ctx context.Context) (*Account, error) {
	if !m.signingIn.CompareAndSwap(false, true) {
		return nil, ErrSignInInProgress
	}
	defer m.signingIn.Store(false)

	cred, err := m.newCredential()
	if err != nil {
		m.logger.Error("Failed to create credential", "flow", m.opts.Flow, "error", err)
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	m.logger.Info("Starting interactive sign-in", "flow", m.opts.Flow, "tenant_id", m.opts.TenantID)
	record, err := cred.Authenticate(ctx, &policy.TokenRequestOptions{Scopes: LoginScopes})
	if err != nil {
		m.logger.Error("Sign-in failed", "error", err)
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	client, err := m.newGraph(cred, graph.Scopes)
	if err != nil {
		m.logger.Error("Failed to initialize Graph client", "error", err)
		return nil, err
	}

	acct := &Account{
		HomeAccountID: record.HomeAccountID,
		Username:      record.Username,
		TenantID:      record.TenantID,
		Authority:     record.Authority,
	}

	m.mu.Lock()
	m.account = acct
	m.cred = cred
	m.client = client
	m.mu.Unlock()

	m.logger.Info("Signed in", "username", acct.Username, "tenant_id", acct.TenantID)
	return m.CurrentAccount(), nil
}

// SignOut ends the identity provider session in the browser and forgets the
// account. Signing out while signed out is a no-op.
func (m *Manager) SignOut(ctx context.Context) error {
	acct := m.CurrentAccount()
	if acct == nil {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.openURL(m.LogoutURL(acct)); err != nil {
		m.logger.Error("Sign-out failed", "error", err)
		return fmt.Errorf("sign-out failed: %w", err)
	}

	m.mu.Lock()
	m.account = nil
	m.cred = nil
	m.client = nil
	m.mu.Unlock()

	m.logger.Info("Signed out", "username", acct.Username)
	return nil
}

// LogoutURL is the identity platform end-session endpoint for acct.
func (m *Manager) LogoutURL(acct *Account) string {
	tenant := m.opts.TenantID
	if acct != nil && acct.TenantID != "" {
		tenant = acct.TenantID
	}

	q := url.Values{}
	if acct != nil && acct.Username != "" {
		q.Set("logout_hint", acct.Username)
	}
	if m.opts.RedirectURL != "" {
		q.Set("post_logout_redirect_uri", m.opts.RedirectURL)
	}

	u := url.URL{
		Scheme: "https",
		Host:   "login.microsoftonline.com",
		Path:   "/" + url.PathEscape(tenant) + "/oauth2/v2.0/logout",
	}
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
