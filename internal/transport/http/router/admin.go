package router

import (
	"github.com/gin-gonic/gin"

	"user-registry/internal/core/auth"
	"user-registry/internal/domain"
	mdw "user-registry/internal/transport/http/middleware"
)

func NewAdminEngine(d Deps, jwter *auth.JWTer, mods ...AdminModule) *gin.Engine {
	r := base(d)

	// 管理端 v1（统一要求 ADMIN 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, string(domain.RoleAdmin)))
	MountAllAdmin(admin, mods...)

	return r
}
