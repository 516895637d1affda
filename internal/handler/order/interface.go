package order

import "github.com/gin-gonic/gin"

type IHandler interface {
	GetStatus(c *gin.Context)
}
