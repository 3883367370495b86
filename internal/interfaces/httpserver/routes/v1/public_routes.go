package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-chat/internal/interfaces/httpserver/handlers"
)

func registerAuthRoutes(router gin.IRoutes, handler *handlers.AuthHandler) {
	router.POST("/auth/signup", handler.SignUp)
	router.POST("/auth/signin", handler.SignIn)
	router.POST("/auth/verification", handler.ResendVerification)
	router.POST("/auth/signout", handler.SignOut)
}
