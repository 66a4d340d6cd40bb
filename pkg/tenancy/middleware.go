/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package tenancy

import (
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apiutils "github.com/MrEliotA/modelops-studio-saas/pkg/apiserver/utils"
	commonerrors "github.com/MrEliotA/modelops-studio-saas/pkg/errors"
)

const (
	HeaderTenantId  = "X-Tenant-Id"
	HeaderProjectId = "X-Project-Id"
	HeaderUserId    = "X-User-Id"
	HeaderRoles     = "X-Roles"
	HeaderRequestId = "X-Request-Id"

	identityKey = "modelops/identity"

	RoleAdmin = "admin"
)

// Identity is the caller identity extracted from the trusted edge headers.
type Identity struct {
	TenantId  string
	ProjectId string
	UserId    string
	Roles     []string
}

func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Middleware validates the tenancy headers and stores the identity on the
// request context. Paths under a skip prefix pass through unchecked.
func Middleware(skipPrefixes []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestId := c.GetHeader(HeaderRequestId)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		c.Header(HeaderRequestId, requestId)

		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(c.Request.URL.Path, prefix) {
				c.Next()
				return
			}
		}

		identity, err := parseIdentity(c)
		if err != nil {
			apiutils.AbortWithApiError(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func parseIdentity(c *gin.Context) (*Identity, error) {
	tenantId := c.GetHeader(HeaderTenantId)
	if tenantId == "" {
		return nil, commonerrors.NewTenancyDenied("missing " + HeaderTenantId)
	}
	if _, err := uuid.Parse(tenantId); err != nil {
		return nil, commonerrors.NewTenancyDenied("invalid " + HeaderTenantId)
	}
	projectId := c.GetHeader(HeaderProjectId)
	if projectId == "" {
		return nil, commonerrors.NewTenancyDenied("missing " + HeaderProjectId)
	}
	if _, err := uuid.Parse(projectId); err != nil {
		return nil, commonerrors.NewTenancyDenied("invalid " + HeaderProjectId)
	}
	userId := c.GetHeader(HeaderUserId)
	if userId == "" {
		return nil, commonerrors.NewTenancyDenied("missing " + HeaderUserId)
	}
	return &Identity{
		TenantId:  tenantId,
		ProjectId: projectId,
		UserId:    userId,
		Roles:     splitRoles(c.GetHeader(HeaderRoles)),
	}, nil
}

// splitRoles accepts comma or whitespace separated role lists.
func splitRoles(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// FromContext returns the identity stored by the middleware.
func FromContext(c *gin.Context) (*Identity, error) {
	val, ok := c.Get(identityKey)
	if !ok {
		return nil, commonerrors.NewTenancyDenied("identity not found in request context")
	}
	identity, ok := val.(*Identity)
	if !ok {
		return nil, commonerrors.NewInternalError("malformed identity in request context")
	}
	return identity, nil
}
