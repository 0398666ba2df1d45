package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware 认证中间件
// 只做令牌校验：解析 Bearer JWT，把 org_id / user_id 写入上下文
// 令牌签发在外部系统
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"code": 401, "msg": "Missing Authorization header"})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(401, gin.H{"code": 401, "msg": "Invalid Authorization header format"})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := parseToken(tokenStr, secret)
		if err != nil {
			c.JSON(401, gin.H{"code": 401, "msg": "Invalid or expired token"})
			c.Abort()
			return
		}

		orgID, _ := claims["org_id"].(string)
		if orgID == "" {
			c.JSON(401, gin.H{"code": 401, "msg": "Token missing org_id claim"})
			c.Abort()
			return
		}
		c.Set("org_id", orgID)

		if userID, ok := claims["sub"].(string); ok {
			c.Set("user_id", userID)
		}

		c.Next()
	}
}

// parseToken 解析并校验 HMAC 签名的 JWT
func parseToken(tokenStr, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GetOrgID 从上下文获取当前组织ID
func GetOrgID(c *gin.Context) string {
	if orgID, exists := c.Get("org_id"); exists {
		if id, ok := orgID.(string); ok {
			return id
		}
	}
	return ""
}

// GetUserID 从上下文获取当前用户ID
func GetUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}
