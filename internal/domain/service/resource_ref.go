package service

import (
	"strings"

	"github.com/google/uuid"
)

// ExtractResourceTenantID extracts the tenant a request's resource belongs
// to, best-effort: the first UUID-shaped path segment following a "tenants"
// segment wins, otherwise an explicit tenantId query or body field. An empty
// result means the request carries no cross-tenant reference.
func ExtractResourceTenantID(path string, queryTenantID string, body map[string]interface{}) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		if segment != "tenants" || i+1 >= len(segments) {
			continue
		}
		if _, err := uuid.Parse(segments[i+1]); err == nil {
			return segments[i+1]
		}
	}

	if queryTenantID != "" {
		return queryTenantID
	}

	if body != nil {
		if v, ok := body["tenantId"].(string); ok && v != "" {
			return v
		}
		if v, ok := body["tenant_id"].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
