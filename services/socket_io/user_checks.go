package socket_io

import (
	postgres_models "RinkLink/models/postgres"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/zishang520/socket.io/v2/socket"
	"gorm.io/gorm"
)

// VerifyUserConnection checks the handshake auth data and makes sure the
// user actually exists before letting the socket in.
func VerifyUserConnection(client *socket.Socket, db *gorm.DB) (string, error) {
	authData, ok := client.Handshake().Auth.(map[string]interface{})
	if !ok {
		fmt.Println("Handshake auth data is missing or invalid!")
		client.Emit("error", gin.H{"error": "Authentication failed: missing auth data"})
		return "", errors.New("authentication data missing")
	}

	userID, exists := authData["user_id"].(string)
	if !exists || userID == "" {
		fmt.Println("No user id provided in handshake!")
		client.Emit("error", gin.H{"error": "Authentication failed: missing user id"})
		return "", errors.New("user id not found in authentication")
	}

	var user postgres_models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		client.Emit("error", gin.H{"error": "Authentication failed: unknown user"})
		return "", err
	}

	return userID, nil
}
