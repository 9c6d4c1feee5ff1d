package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pagekeep/oauth-login/internal/account"
	"github.com/pagekeep/oauth-login/internal/oauth"
	"go.uber.org/zap"
)

var (
	// ErrMissingIdentifier indicates the profile has no usable field to
	// derive a username from.
	ErrMissingIdentifier = errors.New("profile has no usable identifier")
	// ErrInvalidUsername indicates the derived name fails account naming rules.
	ErrInvalidUsername = errors.New("derived username is not a valid account name")
	// ErrDomainRequired indicates the domain policy is active but the
	// profile carries no email.
	ErrDomainRequired = errors.New("email required by domain policy")
	// ErrDomainNotAllowed indicates the email domain is not allow-listed.
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	// ErrAutoCreateDisabled indicates no account matched and creation is off.
	ErrAutoCreateDisabled = errors.New("account auto-creation disabled")
)

var (
	unsafeChars  = regexp.MustCompile(`[^A-Za-z0-9_.-]`)
	nonAlnum     = regexp.MustCompile(`[^A-Za-z0-9]`)
	trimCutset   = " _.-"
	subPrefixLen = 12
)

// maxUsernameLength caps derived names to what the accounts table accepts.
const maxUsernameLength = 64

// DeriveUsername turns untrusted profile data into a safe candidate account
// name. Preference order: preferred_username, then the local part of email,
// then a prefix of the subject identifier.
func DeriveUsername(profile oauth.Profile) (string, error) {
	var candidate string
	switch {
	case profile.String("preferred_username") != "":
		candidate = profile.String("preferred_username")
	case strings.Contains(profile.String("email"), "@"):
		email := profile.String("email")
		candidate = email[:strings.Index(email, "@")]
	case profile.String("sub") != "":
		stripped := nonAlnum.ReplaceAllString(profile.String("sub"), "")
		if len(stripped) > subPrefixLen {
			stripped = stripped[:subPrefixLen]
		}
		candidate = "oauth-" + stripped
	default:
		return "", ErrMissingIdentifier
	}

	name := unsafeChars.ReplaceAllString(candidate, "_")
	name = strings.Trim(name, trimCutset)
	if name == "" || len(name) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	return name, nil
}

// EnforceDomainPolicy rejects emails outside the allow-list. An empty list
// disables the policy entirely.
func EnforceDomainPolicy(email string, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	if email == "" {
		return ErrDomainRequired
	}
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ErrDomainNotAllowed
	}
	domain := strings.ToLower(email[at+1:])
	for _, entry := range allowed {
		if strings.EqualFold(domain, strings.TrimSpace(entry)) {
			return nil
		}
	}
	return ErrDomainNotAllowed
}

// Resolver maps provider profiles onto local accounts.
type Resolver struct {
	store          account.Store
	allowedDomains []string
	autoCreate     bool
	logger         *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store account.Store, allowedDomains []string, autoCreate bool, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:          store,
		allowedDomains: allowedDomains,
		autoCreate:     autoCreate,
		logger:         logger,
	}
}

// Resolve binds the profile to an existing account or creates one when
// policy allows. The domain policy runs before username derivation so a
// forbidden-domain profile never reaches the account store.
func (r *Resolver) Resolve(ctx context.Context, profile oauth.Profile) (*account.Account, error) {
	if err := EnforceDomainPolicy(profile.String("email"), r.allowedDomains); err != nil {
		return nil, err
	}

	name, err := DeriveUsername(profile)
	if err != nil {
		return nil, err
	}

	acct, err := r.store.FindByName(ctx, name)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("lookup account %q: %w", name, err)
	}

	if !r.autoCreate {
		return nil, ErrAutoCreateDisabled
	}

	in := account.CreateInput{Name: name}
	if email := profile.String("email"); email != "" {
		in.Email = email
		in.EmailConfirmed = true
	}
	if display := profile.String("name"); display != "" {
		in.DisplayName = display
	}

	created, err := r.store.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create account %q: %w", name, err)
	}
	if err := r.store.IssueAuthToken(ctx, created); err != nil {
		return nil, fmt.Errorf("issue auth token: %w", err)
	}

	r.logger.Info("account auto-created from oauth profile",
		zap.String("name", created.Name),
		zap.Bool("has_email", created.Email != ""),
	)
	return created, nil
}
