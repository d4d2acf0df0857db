package router

import (
	"html/template"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/imagegallery/internal/handler"
	"github.com/imagegallery/internal/logging"
	"github.com/imagegallery/internal/view"
	"github.com/imagegallery/web"
	log "github.com/sirupsen/logrus"
)

// Options configures the HTTP engine.
type Options struct {
	SessionSecret string
	// UploadDir is served under UploadURLPath when files are stored locally.
	UploadDir     string
	UploadURLPath string
	CORSOrigins   []string
	Logger        log.FieldLogger
}

// requestIDMiddleware 为每个请求生成 UUID 并写入响应头
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) (*gin.Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(logging.GinLogger(logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 86400})
	r.Use(sessions.Sessions("gallery_session", store))

	// 加载模板并添加自定义函数
	tmpl, err := web.Templates(template.FuncMap{
		"icon":      view.Icon,
		"iconLabel": view.IconLabel,
	})
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	// 静态文件服务
	r.StaticFS("/assets", web.StaticFS())
	if opts.UploadDir != "" && opts.UploadURLPath != "" {
		r.Static(opts.UploadURLPath, opts.UploadDir)
		if opts.UploadURLPath != "/uploads" {
			r.Static("/uploads", opts.UploadDir)
		}
	}

	r.GET("/health", api.HealthCheck)

	r.GET("/", api.ShowGallery)
	r.GET("/images/more", api.LoadMoreGallery)
	r.GET("/images/new", api.ShowImageForm)
	r.POST("/images/form", api.SubmitImageForm)
	r.POST("/images/form/upload", api.UploadFormImage)
	r.POST("/images/form/cancel", api.CancelImageForm)
	r.POST("/viewer/open", api.OpenViewer)
	r.POST("/viewer/close", api.CloseViewer)

	apiGroup := r.Group("/api")
	apiGroup.Use(corsMiddleware(opts.CORSOrigins))
	{
		apiGroup.GET("/images", api.ListImages)
		apiGroup.GET("/images/:id", api.GetImage)
		apiGroup.POST("/images", api.CreateImage)
		apiGroup.POST("/uploads", api.UploadImage)
	}

	return r, nil
}
