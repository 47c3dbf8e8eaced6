// Package api 提供 gin 实现的 HTTP/JSON 接口。
package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"jobsphere/internal/apperr"
	"jobsphere/internal/bookmark"
	"jobsphere/internal/catalog"
	"jobsphere/internal/lifecycle"
	"jobsphere/internal/model"
	"jobsphere/internal/notifier"
	"jobsphere/internal/profile"
	"jobsphere/internal/scheduler"
	"jobsphere/internal/search"
	"jobsphere/internal/stats"
	"jobsphere/internal/storage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserStore 账户读写接口。
type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id uint) (*model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	DeactivateUser(ctx context.Context, id uint) error
}

// JobCatalog 职位目录服务。
type JobCatalog interface {
	Create(ctx context.Context, posterID uint, in catalog.JobInput) (*model.Job, error)
	Update(ctx context.Context, userID, jobID uint, in catalog.JobInput) (*model.Job, error)
	Delete(ctx context.Context, userID, jobID uint) error
	Get(ctx context.Context, viewerID, jobID uint, meta catalog.ViewMeta) (*catalog.JobDetail, error)
	List(ctx context.Context, in catalog.ListInput) (catalog.ListResult, error)
	MyJobs(ctx context.Context, posterID uint, page, pageSize int) (catalog.MyJobsResult, error)
	Categories(ctx context.Context) ([]storage.CategoryCount, error)
}

// LocationService 地点服务。
type LocationService interface {
	Create(ctx context.Context, in catalog.LocationInput) (*model.Location, error)
	Get(ctx context.Context, id uint) (*model.Location, error)
	List(ctx context.Context, query string, page, pageSize int) ([]model.Location, error)
	Nearby(ctx context.Context, lat, lon, radiusKM float64) []model.Location
}

// ApplicationTracker 投递生命周期服务。
type ApplicationTracker interface {
	Apply(ctx context.Context, in lifecycle.ApplyInput) (*model.Application, error)
	Withdraw(ctx context.Context, applicationID, userID uint) (*model.Application, error)
	Transition(ctx context.Context, applicationID, userID uint, in lifecycle.TransitionInput) (*model.Application, error)
	UpdateContent(ctx context.Context, applicationID, userID uint, in lifecycle.ContentInput) (*model.Application, error)
	Get(ctx context.Context, applicationID, userID uint) (*model.Application, error)
	ListMine(ctx context.Context, applicantID uint, in lifecycle.ListInput) (lifecycle.ListResult, error)
	ListForJob(ctx context.Context, userID, jobID uint, in lifecycle.ListInput) (lifecycle.ListResult, error)
}

// SavedJobs 收藏服务。
type SavedJobs interface {
	Save(ctx context.Context, userID uint, req bookmark.Request) (*model.SavedJob, bool, error)
	UpdateNotes(ctx context.Context, userID, id uint, notes string) (*model.SavedJob, error)
	Delete(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint, page, pageSize int) (bookmark.ListResult, error)
}

// Inbox 站内通知服务。
type Inbox interface {
	List(ctx context.Context, userID uint, opts notifier.ListOptions) (notifier.ListResult, error)
	Stats(ctx context.Context, userID uint) (storage.NotificationStats, error)
	Get(ctx context.Context, userID, id uint, markRead bool) (*model.Notification, error)
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Dismiss(ctx context.Context, userID, id uint) (*model.Notification, error)
	Delete(ctx context.Context, userID, id uint) error
}

// Profiles 用户资料服务。
type Profiles interface {
	Get(ctx context.Context, userID uint) (profile.View, error)
	Update(ctx context.Context, userID uint, in profile.ProfileInput) (profile.View, error)
	Overview(ctx context.Context, userID uint) (profile.Overview, error)
	Public(ctx context.Context, username string) (*profile.PublicProfile, error)
	Experiences(ctx context.Context, userID uint) ([]profile.ExperienceView, error)
	AddExperience(ctx context.Context, userID uint, in profile.ExperienceInput) (profile.ExperienceView, error)
	GetExperience(ctx context.Context, userID, id uint) (profile.ExperienceView, error)
	UpdateExperience(ctx context.Context, userID, id uint, in profile.ExperienceInput) (profile.ExperienceView, error)
	DeleteExperience(ctx context.Context, userID, id uint) error
	About(ctx context.Context, userID uint) (profile.AboutView, error)
	UpdateAbout(ctx context.Context, userID uint, in profile.AboutInput) (profile.AboutView, error)
	Contact(ctx context.Context, userID uint) (*model.Contact, error)
	UpdateContact(ctx context.Context, userID uint, in profile.ContactInput) (*model.Contact, error)
}

// SavedSearches 保存检索服务。
type SavedSearches interface {
	Create(ctx context.Context, userID uint, in search.Input) (*model.SavedSearch, error)
	Get(ctx context.Context, userID, id uint) (*model.SavedSearch, error)
	Update(ctx context.Context, userID, id uint, in search.Input) (*model.SavedSearch, error)
	Delete(ctx context.Context, userID, id uint) error
	List(ctx context.Context, userID uint, page, pageSize int) (search.ListResult, error)
	Use(ctx context.Context, userID, id uint, page, pageSize int) (search.UseResult, error)
}

// Dashboards 仪表盘统计服务。
type Dashboards interface {
	Dashboard(ctx context.Context, userID uint) (stats.DashboardView, error)
	Summary(ctx context.Context, userID uint) (stats.Summary, error)
	Performance(ctx context.Context, userID uint) (stats.Performance, error)
	Timeline(ctx context.Context, userID uint, days int) (stats.Timeline, error)
	RecentActivity(ctx context.Context, userID uint) ([]stats.Activity, error)
	UpdatePreferences(ctx context.Context, userID uint, in stats.PreferencesUpdate) (*model.Dashboard, error)
	Reset(ctx context.Context, userID uint) (*model.Dashboard, error)
}

// Maintenance 手动触发一次维护任务。
type Maintenance interface {
	RunOnce(ctx context.Context) (scheduler.Report, error)
}

// Pinger 健康检查。
type Pinger interface {
	Ping(ctx context.Context) error
}

// CORSConfig 跨域配置，AllowOrigins 为空时允许所有来源。
type CORSConfig struct {
	AllowOrigins []string `yaml:"allow_origins" json:"allow_origins"`
}

// Deps 汇总 HTTP 层依赖，Maintenance 与 Health 可为 nil。
type Deps struct {
	Users         UserStore
	Jobs          JobCatalog
	Locations     LocationService
	Applications  ApplicationTracker
	SavedJobs     SavedJobs
	Notifications Inbox
	Dashboards    Dashboards
	Profiles      Profiles
	Searches      SavedSearches
	Maintenance   Maintenance
	Health        Pinger
	CORS          CORSConfig
	Logger        *log.Logger
}

const (
	userHeader      = "X-User-ID"
	requestIDHeader = "X-Request-ID"
	userKey         = "user"
	requestIDKey    = "request_id"
)

type handler struct {
	Deps
}

// NewHandler 构造 gin 路由。
func NewHandler(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = log.New(io.Discard, "", 0)
	}
	h := &handler{Deps: d}

	r := gin.New()
	r.Use(gin.LoggerWithWriter(d.Logger.Writer()), gin.RecoveryWithWriter(d.Logger.Writer()))
	r.Use(requestID(), cors.New(corsConfig(d.CORS)))

	r.GET("/health", h.health)

	v1 := r.Group("/api/v1")
	v1.Use(h.identify)
	{
		v1.GET("/health", h.health)

		v1.POST("/users", h.register)
		me := v1.Group("/users/me", requireUser)
		me.GET("", h.getMe)
		me.PATCH("", h.updateMe)
		me.DELETE("", h.deactivateMe)
		me.GET("/profile", h.getProfile)
		me.PATCH("/profile", h.updateProfile)
		me.GET("/profile/stats", h.profileOverview)
		me.GET("/experience", h.listExperience)
		me.POST("/experience", h.addExperience)
		me.GET("/experience/:id", h.getExperience)
		me.PATCH("/experience/:id", h.updateExperience)
		me.DELETE("/experience/:id", h.deleteExperience)
		me.GET("/about", h.getAbout)
		me.PATCH("/about", h.updateAbout)
		me.GET("/contact", h.getContact)
		me.PATCH("/contact", h.updateContact)
		v1.GET("/profiles/:username", h.publicProfile)

		v1.GET("/locations", h.listLocations)
		v1.GET("/locations/nearby", h.nearbyLocations)
		v1.GET("/locations/:id", h.getLocation)
		v1.POST("/locations", requireUser, h.createLocation)

		v1.GET("/jobs", h.listJobs)
		v1.GET("/jobs/categories", h.categories)
		v1.GET("/jobs/mine", requireUser, h.myJobs)
		v1.GET("/jobs/:id", h.getJob)
		v1.POST("/jobs", requireUser, h.createJob)
		v1.PATCH("/jobs/:id", requireUser, h.updateJob)
		v1.DELETE("/jobs/:id", requireUser, h.deleteJob)
		v1.GET("/jobs/:id/applications", requireUser, h.jobApplications)

		apps := v1.Group("/applications", requireUser)
		apps.GET("", h.myApplications)
		apps.POST("", h.apply)
		apps.GET("/:id", h.getApplication)
		apps.PATCH("/:id", h.updateApplication)
		apps.POST("/:id/withdraw", h.withdraw)
		apps.POST("/:id/status", h.transition)

		saved := v1.Group("/saved-jobs", requireUser)
		saved.GET("", h.listSaved)
		saved.POST("", h.saveJob)
		saved.PATCH("/:id", h.updateSaved)
		saved.DELETE("/:id", h.deleteSaved)

		searches := v1.Group("/saved-searches", requireUser)
		searches.GET("", h.listSearches)
		searches.POST("", h.createSearch)
		searches.GET("/:id", h.getSearch)
		searches.PATCH("/:id", h.updateSearch)
		searches.DELETE("/:id", h.deleteSearch)
		searches.POST("/:id/use", h.useSearch)

		notes := v1.Group("/notifications", requireUser)
		notes.GET("", h.listNotifications)
		notes.GET("/stats", h.notificationStats)
		notes.POST("/mark-read", h.markRead)
		notes.POST("/mark-all-read", h.markAllRead)
		notes.GET("/:id", h.getNotification)
		notes.POST("/:id/dismiss", h.dismissNotification)
		notes.DELETE("/:id", h.deleteNotification)

		dash := v1.Group("/dashboard", requireUser)
		dash.GET("", h.dashboard)
		dash.GET("/summary", h.summary)
		dash.GET("/performance", h.performance)
		dash.GET("/timeline", h.timeline)
		dash.GET("/activity", h.activity)
		dash.PATCH("/preferences", h.updatePreferences)
		dash.POST("/reset", h.resetDashboard)

		v1.POST("/maintenance/run", requireUser, h.runMaintenance)
	}

	return r
}

func corsConfig(c CORSConfig) cors.Config {
	cfg := cors.DefaultConfig()
	if len(c.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = c.AllowOrigins
	}
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", userHeader, requestIDHeader}
	cfg.ExposeHeaders = []string{requestIDHeader}
	return cfg
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// identify 解析 X-User-ID，存在时必须对应活跃用户。
func (h *handler) identify(c *gin.Context) {
	raw := c.GetHeader(userHeader)
	if raw == "" {
		c.Next()
		return
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		abortUnauthorized(c, "invalid user id header")
		return
	}
	u, err := h.Users.GetUser(c.Request.Context(), uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		abortUnauthorized(c, "unknown user")
		return
	}
	if err != nil {
		h.fail(c, err)
		c.Abort()
		return
	}
	if !u.IsActive {
		abortUnauthorized(c, "user is deactivated")
		return
	}
	c.Set(userKey, u)
	c.Next()
}

func requireUser(c *gin.Context) {
	if currentUser(c) == nil {
		abortUnauthorized(c, "authentication required")
		return
	}
	c.Next()
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg, "code": "unauthenticated"})
}

func currentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// viewerID 未登录时返回 0。
func viewerID(c *gin.Context) uint {
	if u := currentUser(c); u != nil {
		return u.ID
	}
	return 0
}

// fail 将业务错误映射为 HTTP 状态码，未知错误记录日志并隐藏细节。
func (h *handler) fail(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": apperr.Message(err), "code": apperr.KindOf(err).String()})
			return
		}
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "code": apperr.KindNotFound.String()})
		return
	case errors.Is(err, storage.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists", "code": apperr.KindConflict.String()})
		return
	}
	h.Logger.Printf("request %s %s failed [%s]: %v", c.Request.Method, c.FullPath(), c.GetString(requestIDKey), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": apperr.KindUnknown.String()})
}

// errorStatus 业务错误类别到 HTTP 状态码的映射，按顺序匹配。
var errorStatus = []struct {
	target error
	status int
}{
	{apperr.ErrNotFound, http.StatusNotFound},
	{apperr.ErrForbidden, http.StatusForbidden},
	{apperr.ErrConflict, http.StatusConflict},
	{apperr.ErrRejected, http.StatusBadRequest},
	{apperr.ErrValidation, http.StatusBadRequest},
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": apperr.KindValidation.String()})
}

// idParam 解析路径中的数字 ID，失败时直接写入 400。
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(v), true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func queryBool(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return false, false
	}
	return v, true
}

func (h *handler) health(c *gin.Context) {
	if h.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.Health.Ping(ctx); err != nil {
			h.Logger.Printf("health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// runMaintenance 仅限员工账户手动触发维护。
func (h *handler) runMaintenance(c *gin.Context) {
	if !currentUser(c).IsStaff {
		h.fail(c, apperr.Forbidden("staff only"))
		return
	}
	if h.Maintenance == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "maintenance disabled"})
		return
	}
	rep, err := h.Maintenance.RunOnce(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}
