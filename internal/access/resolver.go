package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/workstream/access-management/pkg/cache"
)

const cacheKeyPrefix = "user_permissions:"

// CacheKeyPattern matches every resolved-permission cache entry.
const CacheKeyPattern = cacheKeyPrefix + "*"

// UserCacheKey returns the cache key of one user's resolved permission set.
func UserCacheKey(userID int64) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, userID)
}

// Service resolves effective permission sets and answers permission checks.
// The cache is strictly an accelerator: any cache failure degrades to an
// entity-store fetch, while store failures propagate to the caller.
type Service struct {
	grants GrantRepository
	rules  RuleRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(grants GrantRepository, rules RuleRepository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		grants: grants,
		rules:  rules,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// GetUserPermissions returns the user's effective permission set, reading
// through the cache and repopulating it on a miss.
func (s *Service) GetUserPermissions(ctx context.Context, userID int64) (*ResolvedPermissions, error) {
	key := UserCacheKey(userID)

	if data, err := s.cache.Get(ctx, key); err == nil {
		var resolved ResolvedPermissions
		if err := json.Unmarshal(data, &resolved); err == nil {
			return &resolved, nil
		}
		// corrupt entry, drop it and fall through to the store
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to drop corrupt cache entry", "error", err, "user_id", userID)
		}
	} else if err != cache.ErrCacheMiss {
		s.logger.Warn("permission cache read failed, falling back to store", "error", err, "user_id", userID)
	}

	grants, err := s.grants.GetEnabledGrants(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load role grants", "error", err, "user_id", userID)
		return nil, ErrPermissionLookupFailed.WithCause(err)
	}

	resolved := foldGrants(grants)

	if data, err := json.Marshal(resolved); err != nil {
		s.logger.Warn("failed to encode permission set for cache", "error", err, "user_id", userID)
	} else if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("permission cache write failed", "error", err, "user_id", userID)
	}

	return resolved, nil
}

// foldGrants unions all grants into one resolved set, keeping the widest
// scope when the same code appears under several roles.
func foldGrants(grants []RoleGrant) *ResolvedPermissions {
	resolved := &ResolvedPermissions{
		Permissions: make([]string, 0),
		DataScopes:  make(map[string]string),
		RoleIDs:     make([]int64, 0, len(grants)),
		Departments: make([]string, 0),
	}

	seenRoles := make(map[int64]bool)
	seenDepartments := make(map[string]bool)

	for _, grant := range grants {
		if !seenRoles[grant.RoleID] {
			seenRoles[grant.RoleID] = true
			resolved.RoleIDs = append(resolved.RoleIDs, grant.RoleID)
		}
		if grant.Department != nil && *grant.Department != "" && !seenDepartments[*grant.Department] {
			seenDepartments[*grant.Department] = true
			resolved.Departments = append(resolved.Departments, *grant.Department)
		}

		for _, pair := range grant.Permissions {
			current, exists := resolved.DataScopes[pair.Code]
			if !exists {
				resolved.Permissions = append(resolved.Permissions, pair.Code)
				resolved.DataScopes[pair.Code] = pair.Scope
				continue
			}
			if ScopeWeight(pair.Scope) > ScopeWeight(current) {
				resolved.DataScopes[pair.Code] = pair.Scope
			}
		}
	}

	return resolved
}

// CheckPermission reports whether the user holds the permission, and when
// target data is supplied, whether the record is inside the resolved scope.
// "No permission" is a false return, never an error.
func (s *Service) CheckPermission(ctx context.Context, userID int64, code string, target map[string]interface{}) (bool, error) {
	resolved, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}

	if !resolved.Has(code) {
		return false, nil
	}
	if target == nil {
		return true, nil
	}

	switch resolved.DataScopes[code] {
	case ScopeAll:
		return true, nil
	case ScopeDepartment:
		department, _ := stringField(target, "department")
		if department == "" {
			return false, nil
		}
		for _, d := range resolved.Departments {
			if d == department {
				return true, nil
			}
		}
		return false, nil
	case ScopePersonal:
		createdBy, ok := int64Field(target, "created_by")
		return ok && createdBy == userID, nil
	default:
		// custom and unknown scopes deny here; data-scope rules may still
		// grant through EvaluateEnhanced
		return false, nil
	}
}

// CheckPermissionWithScope is the record-scoped variant of CheckPermission.
// The target payload is required; callers without one use CheckPermission.
func (s *Service) CheckPermissionWithScope(ctx context.Context, userID int64, code string, target map[string]interface{}) (bool, error) {
	if target == nil {
		target = map[string]interface{}{}
	}
	return s.CheckPermission(ctx, userID, code, target)
}

// CheckAnyPermission reports whether the user holds at least one of the codes.
// No scope evaluation is applied.
func (s *Service) CheckAnyPermission(ctx context.Context, userID int64, codes []string) (bool, error) {
	resolved, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		if resolved.Has(code) {
			return true, nil
		}
	}
	return false, nil
}

// CheckAllPermissions reports whether the user holds every one of the codes.
func (s *Service) CheckAllPermissions(ctx context.Context, userID int64, codes []string) (bool, error) {
	resolved, err := s.GetUserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		if !resolved.Has(code) {
			return false, nil
		}
	}
	return true, nil
}

// InvalidateUser drops one user's resolved-permission cache entry.
func (s *Service) InvalidateUser(ctx context.Context, userID int64) error {
	if err := s.cache.Delete(ctx, UserCacheKey(userID)); err != nil {
		s.logger.Warn("failed to invalidate permission cache", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// InvalidateAll drops every resolved-permission cache entry. Role and
// permission mutations can affect any number of users, so managers call this
// conservatively.
func (s *Service) InvalidateAll(ctx context.Context) error {
	if err := s.cache.DeletePattern(ctx, CacheKeyPattern); err != nil {
		s.logger.Warn("failed to invalidate permission cache family", "error", err)
		return err
	}
	return nil
}

// stringField reads a string value tolerating both snake_case and camelCase
// keys, since target payloads arrive from sibling services in either shape.
func stringField(target map[string]interface{}, key string) (string, bool) {
	v, ok := target[key]
	if !ok {
		v, ok = target[camelCase(key)]
	}
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func int64Field(target map[string]interface{}, key string) (int64, bool) {
	v, ok := target[key]
	if !ok {
		v, ok = target[camelCase(key)]
	}
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func camelCase(key string) string {
	out := make([]byte, 0, len(key))
	upper := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
