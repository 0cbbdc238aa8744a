// Package resolver turns the human-friendly tokens accepted on the
// command line (activity names, "me", status keywords, custom-field
// specs) into the literal values the API understands. Resolution runs
// once, before any request is built.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/cache"
	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/redmine"
)

// CurrentUserClient is the slice of the API client the resolver needs.
type CurrentUserClient interface {
	CurrentUser(ctx context.Context) (redmine.CurrentUser, error)
}

// ActivitySource yields the cached activity enumeration for a server
// account.
type ActivitySource interface {
	ResolveOrRefresh(ctx context.Context, identity config.Identity) (*cache.Entry, error)
}

// Resolver resolves command-line tokens against one server account.
type Resolver struct {
	client     CurrentUserClient
	activities ActivitySource
	identity   config.Identity
	logger     *zap.SugaredLogger

	// The current user's ID is looked up at most once per process.
	meOnce sync.Mutex
	meID   int
	meSet  bool
}

// New creates a resolver bound to one server account.
func New(client CurrentUserClient, activities ActivitySource, identity config.Identity, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		client:     client,
		activities: activities,
		identity:   identity,
		logger:     logger,
	}
}

// ActivityID resolves an activity token to its numeric ID. A numeric
// token is taken literally without consulting the cache; anything else
// is matched case-insensitively against the cached enumeration.
func (r *Resolver) ActivityID(ctx context.Context, token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, apperrors.New(apperrors.Validation, "activity must not be empty")
	}

	if id, err := strconv.Atoi(token); err == nil {
		if id <= 0 {
			return 0, apperrors.New(apperrors.Validation, "activity ID must be positive, got %d", id)
		}
		return id, nil
	}

	entry, err := r.activities.ResolveOrRefresh(ctx, r.identity)
	if err != nil {
		return 0, err
	}

	for _, activity := range entry.Activities {
		if strings.EqualFold(activity.Name, token) {
			return activity.ID, nil
		}
	}

	names := make([]string, 0, len(entry.Activities))
	for _, activity := range entry.Activities {
		names = append(names, activity.Name)
	}

	return 0, apperrors.New(apperrors.Validation, "unknown activity %q", token).
		WithDetail("valid_names", names).
		WithHint(activityHint(names))
}

func activityHint(names []string) string {
	if len(names) == 0 {
		return "The server reports no time entry activities. Run 'rdm time activities --refresh'."
	}
	return fmt.Sprintf("Known activities: %s. Run 'rdm time activities --refresh' if the list looks stale.",
		strings.Join(names, ", "))
}

// UserID resolves a user token for a query parameter: "me" becomes the
// authenticated user's ID, numeric IDs pass through, anything else is
// rejected. The empty token stays empty.
func (r *Resolver) UserID(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	switch {
	case token == "":
		return "", nil
	case token == "me":
		id, err := r.currentUserID(ctx)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(id), nil
	}

	if _, err := strconv.Atoi(token); err != nil {
		return "", apperrors.New(apperrors.Validation,
			"invalid user %q: expected \"me\" or a numeric ID", token)
	}
	return token, nil
}

// currentUserID fetches and memoizes the authenticated user's ID.
func (r *Resolver) currentUserID(ctx context.Context) (int, error) {
	r.meOnce.Lock()
	defer r.meOnce.Unlock()

	if r.meSet {
		return r.meID, nil
	}

	user, err := r.client.CurrentUser(ctx)
	if err != nil {
		return 0, err
	}

	r.meID = user.ID
	r.meSet = true
	r.logger.Debugw("resolved current user", "user_id", user.ID, "login", user.Login)
	return r.meID, nil
}

// StatusToken validates a status token. The keywords open, closed and
// * pass through as API tokens; numeric IDs pass through literally.
func (r *Resolver) StatusToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	switch token {
	case "", redmine.StatusOpen, redmine.StatusClosed, redmine.StatusAny:
		return token, nil
	}
	if _, err := strconv.Atoi(token); err != nil {
		return "", apperrors.New(apperrors.Validation,
			"invalid status %q (expected: open, closed, * or a numeric status ID)", token)
	}
	return token, nil
}

// CustomField parses one key=value custom-field spec. The key must be
// a numeric field ID, written bare or as cf_<id>; field names are not
// guaranteed unique on the server and are rejected. The value passes
// through raw.
func (r *Resolver) CustomField(token string) (redmine.CustomFieldFilter, error) {
	parts := strings.SplitN(token, "=", 2)
	if len(parts) != 2 {
		return redmine.CustomFieldFilter{}, apperrors.New(apperrors.Validation,
			"invalid custom field %q: expected <id>=<value>", token)
	}

	key := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[0]), "cf_"))
	id, err := strconv.Atoi(key)
	if err != nil || id <= 0 {
		return redmine.CustomFieldFilter{}, apperrors.New(apperrors.Validation,
			"invalid custom field key %q: only numeric field IDs are accepted (names are ambiguous)", parts[0])
	}

	return redmine.CustomFieldFilter{ID: id, Value: parts[1]}, nil
}

// CustomFields parses a list of key=value specs.
func (r *Resolver) CustomFields(tokens []string) ([]redmine.CustomFieldFilter, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	filters := make([]redmine.CustomFieldFilter, 0, len(tokens))
	for _, token := range tokens {
		filter, err := r.CustomField(token)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)
	}
	return filters, nil
}
