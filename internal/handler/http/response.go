package http

import "github.com/gin-gonic/gin"

// ErrorResponse 把错误消息以 {"error": ...} 的形式写出。
// 业务错误到状态码的映射集中在 HandleServiceError。
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// SuccessResponse 直接写出数据负载，不做额外包装，
// 各接口的响应结构体自带 json 标签。
func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
