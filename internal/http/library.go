package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mlukasik/filmlog/internal/database/library"
)

// LibraryController exposes the user's library read path.
type LibraryController struct {
	repo *library.Repository
}

func NewLibraryController(repo *library.Repository) *LibraryController {
	return &LibraryController{repo: repo}
}

// List returns all of the caller's library entries, newest first.
func (lc *LibraryController) List(c *gin.Context) {
	userID := GetUserID(c)

	entries, err := lc.repo.ListForUser(userID)
	if err != nil {
		respondInternalError(c, "list library entries", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
