package middleware

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetUpMiddleware installs the layers every route shares: a signed-cookie
// session store and a wide-open CORS policy, since the schedule pages are
// served from a different origin than the API.
func SetUpMiddleware(r *gin.Engine) {
	sessionStore := cookie.NewStore([]byte(os.Getenv("KEY")))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("rinklink_session", sessionStore))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
