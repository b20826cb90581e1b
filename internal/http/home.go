package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const recentBooksOnHome = 5

type HomeController struct {
	pages
	store StatsStore
}

func NewHomeController(p pages, store StatsStore) *HomeController {
	return &HomeController{pages: p, store: store}
}

// Home shows catalog totals and the most recently added books.
func (hc *HomeController) Home(c *gin.Context) {
	totalBooks, err := hc.store.CountBooks()
	if err != nil {
		hc.internalError(c, err, "count books")
		return
	}
	totalLibraries, err := hc.store.CountLibraries()
	if err != nil {
		hc.internalError(c, err, "count libraries")
		return
	}
	recent, err := hc.store.RecentBooks(recentBooksOnHome)
	if err != nil {
		hc.internalError(c, err, "recent books")
		return
	}

	hc.render(c, http.StatusOK, "home", gin.H{
		"Title":          "Home",
		"TotalBooks":     totalBooks,
		"TotalLibraries": totalLibraries,
		"RecentBooks":    recent,
	})
}
