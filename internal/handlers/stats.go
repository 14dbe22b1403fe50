package handlers

import (
	"net/http"
	"strconv"
	"time"

	"ridemate/internal/models"
	"ridemate/internal/services"
	"ridemate/internal/stats"
)

// StatsHandler serves the derived statistics. Distances are converted to the
// rider's display unit; everything is computed fresh on each request.
type StatsHandler struct {
	session  *services.SessionStore
	rides    *services.RideService
	expenses *services.ExpenseService
	posts    *services.PostService
	clock    services.Clock
}

// NewStatsHandler creates a new statistics handler
func NewStatsHandler(
	session *services.SessionStore,
	rides *services.RideService,
	expenses *services.ExpenseService,
	posts *services.PostService,
	clock services.Clock,
) *StatsHandler {
	if clock == nil {
		clock = services.SystemClock{}
	}
	return &StatsHandler{
		session:  session,
		rides:    rides,
		expenses: expenses,
		posts:    posts,
		clock:    clock,
	}
}

// DashboardResponse is the body of GET /api/v1/stats/dashboard
type DashboardResponse struct {
	stats.Dashboard
	TotalPosts int `json:"total_posts"`
	TotalLikes int `json:"total_likes"`
}

// GetDashboard handles GET /api/v1/stats/dashboard
func (h *StatsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	id := h.session.Identity()
	if id == nil {
		respondServiceError(w, r, services.ErrNotLoggedIn)
		return
	}

	prefs := h.session.Preferences()
	myPosts := h.posts.ByAuthor(id.ID)

	respondJSON(w, http.StatusOK, DashboardResponse{
		Dashboard:  stats.BuildDashboard(h.rides.Mine(), h.clock.Now()).InUnit(prefs.UseMetric),
		TotalPosts: len(myPosts),
		TotalLikes: stats.TotalLikes(myPosts),
	})
}

// GetOverview handles GET /api/v1/stats/overview?type=&month=&year=
func (h *StatsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var q stats.OverviewQuery

	if t := query.Get("type"); t != "" && t != "all" {
		q.TypeFilter = models.ExpenseType(t)
		if !q.TypeFilter.Valid() {
			respondError(w, "unknown expense type", http.StatusBadRequest)
			return
		}
	}
	if m := query.Get("month"); m != "" {
		month, err := strconv.Atoi(m)
		if err != nil || month < 1 || month > 12 {
			respondError(w, "month must be between 1 and 12", http.StatusBadRequest)
			return
		}
		q.Month = time.Month(month)
	}
	if y := query.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1 {
			respondError(w, "invalid year", http.StatusBadRequest)
			return
		}
		q.Year = year
	}

	prefs := h.session.Preferences()
	overview := stats.BuildOverview(h.rides.Mine(), h.expenses.List(), h.clock.Now(), q)
	respondJSON(w, http.StatusOK, overview.InUnit(prefs.UseMetric))
}
